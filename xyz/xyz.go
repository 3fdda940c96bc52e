/*
 * xyz.go, part of kbody.
 *
 *
 * Copyright 2024 Raul Mera rauldotmeraatusachdotcl
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 */

//Package xyz reads and writes multi-frame XYZ files, with the total
//energy on the comment line and, optionally, the atomic forces in three
//extra columns per atom.
package xyz

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rmera/kbody"
	"gonum.org/v1/gonum/mat"
)

//energyFromComment fishes the energy out of the comment line: either the
//whole line is a number, or it carries key=value pairs and we take the
//first value that parses. Missing energy is not an error, it is just 0
//(pure geometry files are legal).
func energyFromComment(line string) float64 {
	for _, field := range strings.Fields(line) {
		if eq := strings.LastIndexByte(field, '='); eq >= 0 {
			field = field[eq+1:]
		}
		if v, err := strconv.ParseFloat(field, 64); err == nil {
			return v
		}
	}
	return 0
}

// Read parses every frame of a (possibly multi-frame) XYZ stream. Each
// atom line is "symbol x y z", with three more columns for the forces
// when present; all frames of one file must agree on having forces.
func Read(r io.Reader) ([]*kbody.Structure, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	var structures []*kbody.Structure
	line := 0
	nextLine := func() (string, bool) {
		for scanner.Scan() {
			line++
			return scanner.Text(), true
		}
		return "", false
	}
	for {
		head, ok := nextLine()
		if !ok {
			break
		}
		if strings.TrimSpace(head) == "" {
			continue
		}
		natoms, err := strconv.Atoi(strings.TrimSpace(head))
		if err != nil || natoms <= 0 {
			return nil, fmt.Errorf("xyz: bad atom count %q at line %d", head, line)
		}
		comment, ok := nextLine()
		if !ok {
			return nil, fmt.Errorf("xyz: truncated frame at line %d", line)
		}
		s := new(kbody.Structure)
		s.Energy = energyFromComment(comment)
		s.Species = make([]string, natoms)
		s.Coords = mat.NewDense(natoms, 3, nil)
		hasForces := false
		for i := 0; i < natoms; i++ {
			atom, ok := nextLine()
			if !ok {
				return nil, fmt.Errorf("xyz: truncated frame at line %d", line)
			}
			fields := strings.Fields(atom)
			if len(fields) != 4 && len(fields) != 7 {
				return nil, fmt.Errorf("xyz: bad atom line %d: %q", line, atom)
			}
			if i == 0 {
				hasForces = len(fields) == 7
				if hasForces {
					s.Forces = mat.NewDense(natoms, 3, nil)
				}
			} else if (len(fields) == 7) != hasForces {
				return nil, fmt.Errorf("xyz: mixed force columns at line %d", line)
			}
			s.Species[i] = fields[0]
			for ax := 0; ax < 3; ax++ {
				v, err := strconv.ParseFloat(fields[1+ax], 64)
				if err != nil {
					return nil, fmt.Errorf("xyz: bad coordinate at line %d: %v", line, err)
				}
				s.Coords.Set(i, ax, v)
			}
			if hasForces {
				for ax := 0; ax < 3; ax++ {
					v, err := strconv.ParseFloat(fields[4+ax], 64)
					if err != nil {
						return nil, fmt.Errorf("xyz: bad force at line %d: %v", line, err)
					}
					s.Forces.Set(i, ax, v)
				}
			}
		}
		structures = append(structures, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("xyz: %v", err)
	}
	return structures, nil
}

// ReadFile is Read on a named file.
func ReadFile(name string) ([]*kbody.Structure, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	structures, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", name, err)
	}
	return structures, nil
}

// Write emits the structures as a multi-frame XYZ stream, forces
// included when a structure carries them.
func Write(w io.Writer, structures []*kbody.Structure) error {
	bw := bufio.NewWriter(w)
	for _, s := range structures {
		natoms := len(s.Species)
		fmt.Fprintf(bw, "%d\n%.8f\n", natoms, s.Energy)
		for i := 0; i < natoms; i++ {
			fmt.Fprintf(bw, "%-3s %14.8f %14.8f %14.8f", s.Species[i],
				s.Coords.At(i, 0), s.Coords.At(i, 1), s.Coords.At(i, 2))
			if s.Forces != nil {
				fmt.Fprintf(bw, " %14.8f %14.8f %14.8f",
					s.Forces.At(i, 0), s.Forces.At(i, 1), s.Forces.At(i, 2))
			}
			fmt.Fprintln(bw)
		}
	}
	return bw.Flush()
}

// WriteFile is Write to a named file.
func WriteFile(name string, structures []*kbody.Structure) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := Write(f, structures); err != nil {
		f.Close()
		os.Remove(name)
		return err
	}
	return f.Close()
}
