/*
 * records.go, part of kbody.
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

package kbody

import (
	"compress/flate"
	"compress/gzip"
	"compress/lzw"
	"encoding/binary"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"gonum.org/v1/gonum/mat"
)

const (
	lzwLitwidth = 8
	//recordMagic opens every record file, before the version byte
	recordMagic = "KBR"
	recordVersion byte = 1
)

// LossFunc maps a structure's true energy to the loss weight stored with
// its record, for loss scaling during training. nil means weight 1.
type LossFunc func(energy float64) float64

//codec selection by the last letter of the filename, so "dataset.kbs"
//gets zstd and "dataset.kbz" gzip. Same convention as compressed
//trajectory files.
func newCompressor(name string, f io.Writer) (io.WriteCloser, error) {
	switch strings.ToLower(name)[len(name)-1] {
	case 'l':
		return lzw.NewWriter(f, lzw.MSB, lzwLitwidth), nil
	case 'z':
		return gzip.NewWriterLevel(f, gzip.BestCompression)
	case 'r':
		return flate.NewWriter(f, flate.BestCompression)
	default: //'s', 'f' and anything else
		return zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	}
}

//zstd.Decoder doesn't implement io.ReadCloser, its Close returns nothing
type zstdql struct {
	closeql func()
	*zstd.Decoder
}

func (z zstdql) Close() error {
	z.closeql()
	return nil
}

func newDecompressor(name string, f io.Reader) (io.ReadCloser, error) {
	switch strings.ToLower(name)[len(name)-1] {
	case 'l':
		return lzw.NewReader(f, lzw.MSB, lzwLitwidth), nil
	case 'z':
		return gzip.NewReader(f)
	case 'r':
		return flate.NewReader(f), nil
	default:
		r, err := zstd.NewReader(f)
		if err != nil {
			return nil, err
		}
		return zstdql{r.Close, r}, nil
	}
}

// Sidecar is the JSON companion of a record file: everything a consumer
// needs to interpret the binary records and rebuild a compatible
// transformer.
type Sidecar struct {
	KbodyTerms            []string       `json:"kbody_terms"`
	SplitDims             []int          `json:"split_dims"`
	Shape                 [2]int         `json:"shape"`
	LookupIndices         []int          `json:"lookup_indices"`
	NumAtomTypes          int            `json:"num_atom_types"`
	Species               []string       `json:"species"`
	IncludeAllK           bool           `json:"include_all_k"`
	Periodic              bool           `json:"periodic"`
	KMax                  int            `json:"k_max"`
	MaxOccurs             map[string]int `json:"max_occurs"`
	NormOrder             int            `json:"norm_order"`
	InitialOneBodyWeights []float64      `json:"initial_one_body_weights"`
	AtomicForcesEnabled   bool           `json:"atomic_forces_enabled"`
	IndexingShape         [2]int         `json:"indexing_shape"`
}

//sidecarName swaps the record file's extension for .json.
func sidecarName(filename string) string {
	ext := filepath.Ext(filename)
	return filename[:len(filename)-len(ext)] + ".json"
}

// ReadSidecar loads the JSON companion of the given record file.
func ReadSidecar(recordFile string) (*Sidecar, error) {
	data, err := os.ReadFile(sidecarName(recordFile))
	if err != nil {
		return nil, errDecorate(err, "ReadSidecar")
	}
	side := new(Sidecar)
	if err := json.Unmarshal(data, side); err != nil {
		return nil, errDecorate(err, "ReadSidecar "+recordFile)
	}
	return side, nil
}

// RecordWriter streams transformed samples to a compressed binary file.
// All samples must come from the same fixed-length transformer; the
// dimensions go in the file header once, not per record. A writer that
// failed mid-stream removes its partial file on Close, so a record file
// that exists after Close is complete.
type RecordWriter struct {
	f         *os.File
	h         io.WriteCloser
	filename  string
	writeable bool
	failed    bool
	count     int
	forces    bool
	rows      int
	cols      int
	numTypes  int
	maxReal   int //padded real-atom count, sizes the stored forces
	idxRows   int
	idxCols   int
	//accumulated for the one-body baseline fit
	occurs   []float64
	energies []float64
}

// NewRecordWriter creates a record file sized for the given fixed-length
// transformer. The last letter of the filename picks the compression:
// 'z' gzip, 'r' flate, 'l' lzw, anything else zstd.
func NewRecordWriter(filename string, F *FixedLenMultiTransformer) (*RecordWriter, error) {
	W := new(RecordWriter)
	W.filename = filename
	W.rows, W.cols = F.Shape()
	W.numTypes = F.NumAtomTypes()
	W.forces = F.opts.AtomicForces
	W.maxReal = F.MaxNumAtoms() - F.NumGhosts()
	W.idxRows = 3 * W.maxReal
	W.idxCols = numForceEntries(W.maxReal, F.KMax())
	var err error
	W.f, err = os.Create(filename)
	if err != nil {
		return nil, errDecorate(err, "NewRecordWriter")
	}
	W.h, err = newCompressor(filename, W.f)
	if err != nil {
		W.f.Close()
		os.Remove(filename)
		return nil, errDecorate(err, "NewRecordWriter "+filename)
	}
	W.writeable = true
	if err := W.writeHeader(); err != nil {
		W.failed = true
		W.Close()
		return nil, errDecorate(err, "NewRecordWriter "+filename)
	}
	return W, nil
}

func (W *RecordWriter) writeHeader() error {
	if _, err := W.h.Write([]byte(recordMagic)); err != nil {
		return err
	}
	if _, err := W.h.Write([]byte{recordVersion}); err != nil {
		return err
	}
	flag := byte(0)
	if W.forces {
		flag = 1
	}
	if _, err := W.h.Write([]byte{flag}); err != nil {
		return err
	}
	dims := []int32{int32(W.rows), int32(W.cols), int32(W.numTypes),
		int32(W.maxReal), int32(W.idxRows), int32(W.idxCols)}
	return binary.Write(W.h, binary.LittleEndian, dims)
}

//rowMajor32 flattens a Dense to float32, row by row.
func rowMajor32(m *mat.Dense) []float32 {
	r, c := m.Dims()
	out := make([]float32, 0, r*c)
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for _, v := range row {
			out = append(out, float32(v))
		}
	}
	return out
}

// WriteSample appends one sample. forces may be nil unless the
// transformer has atomic forces enabled, in which case it holds the
// structure's true N-by-3 forces (N real atoms; padding to the dataset
// maximum happens here). The stored energy is negated, following the
// convention that bound structures get positive targets.
func (W *RecordWriter) WriteSample(s *Sample, forces *mat.Dense, lossWeight float64) error {
	if !W.writeable {
		return CError{msg: "kbody: record file " + W.filename + " is not open for writing"}
	}
	if r, c := s.Features.Dims(); r != W.rows || c != W.cols {
		W.failed = true
		return ShapeError{WantRows: W.rows, WantCols: W.cols, Rows: r, Cols: c}
	}
	err := W.writeSample(s, forces, lossWeight)
	if err != nil {
		W.failed = true
		return errDecorate(err, "WriteSample "+W.filename)
	}
	W.occurs = append(W.occurs, s.Occurs...)
	W.energies = append(W.energies, s.Energy)
	W.count++
	return nil
}

func (W *RecordWriter) writeSample(s *Sample, forces *mat.Dense, lossWeight float64) error {
	le := binary.LittleEndian
	if err := binary.Write(W.h, le, -s.Energy); err != nil {
		return err
	}
	if err := binary.Write(W.h, le, float32(lossWeight)); err != nil {
		return err
	}
	occurs := make([]float32, len(s.Occurs))
	for i, v := range s.Occurs {
		occurs[i] = float32(v)
	}
	if err := binary.Write(W.h, le, occurs); err != nil {
		return err
	}
	weights := make([]float32, len(s.Weights))
	for i, v := range s.Weights {
		weights[i] = float32(v)
	}
	if err := binary.Write(W.h, le, weights); err != nil {
		return err
	}
	if err := binary.Write(W.h, le, rowMajor32(s.Features)); err != nil {
		return err
	}
	if !W.forces {
		return nil
	}
	if forces == nil {
		return CError{msg: "kbody: forces are enabled but the sample came without them"}
	}
	padded := make([]float32, W.maxReal*3)
	fr, _ := forces.Dims()
	for i := 0; i < fr; i++ {
		for ax := 0; ax < 3; ax++ {
			padded[i*3+ax] = float32(forces.At(i, ax))
		}
	}
	if err := binary.Write(W.h, le, padded); err != nil {
		return err
	}
	if err := binary.Write(W.h, le, rowMajor32(s.Coef)); err != nil {
		return err
	}
	if len(s.Indexing) != W.idxRows*W.idxCols {
		return ShapeError{WantRows: W.idxRows, WantCols: W.idxCols,
			Rows: len(s.Indexing), Cols: 1}
	}
	return binary.Write(W.h, le, s.Indexing)
}

// Count returns the number of samples written so far.
func (W *RecordWriter) Count() int { return W.count }

// BaselineData returns the accumulated occurrence matrix and energies of
// everything written, ready for SolveBaseline.
func (W *RecordWriter) BaselineData() (*mat.Dense, []float64) {
	if W.count == 0 {
		return nil, nil
	}
	return mat.NewDense(W.count, W.numTypes, W.occurs), W.energies
}

// Close flushes and closes the file. If any write failed, the partial
// file is removed instead: readers never see a half-written dataset.
func (W *RecordWriter) Close() error {
	if W == nil || !W.writeable {
		return nil
	}
	W.writeable = false
	err1 := W.h.Close()
	err2 := W.f.Close()
	if W.failed {
		os.Remove(W.filename)
		return nil
	}
	if err1 != nil {
		return errDecorate(err1, "Close "+W.filename)
	}
	if err2 != nil {
		return errDecorate(err2, "Close "+W.filename)
	}
	return nil
}

// Record is one decoded sample, kept in the float32 precision it was
// stored with. Energy is un-negated back to the true total energy.
type Record struct {
	Energy     float64
	LossWeight float64
	Occurs     []float32
	Weights    []float32
	Features   []float32
	Forces     []float32
	Coef       []float32
	Indexing   []int32
}

// RecordReader streams records back from a file written by RecordWriter.
type RecordReader struct {
	f        *os.File
	h        io.ReadCloser
	filename string
	forces   bool
	rows     int
	cols     int
	numTypes int
	maxReal  int
	idxRows  int
	idxCols  int
}

// NewRecordReader opens a record file. The compression codec comes from
// the filename, as in NewRecordWriter.
func NewRecordReader(filename string) (*RecordReader, error) {
	R := new(RecordReader)
	R.filename = filename
	var err error
	R.f, err = os.Open(filename)
	if err != nil {
		return nil, errDecorate(err, "NewRecordReader")
	}
	R.h, err = newDecompressor(filename, R.f)
	if err != nil {
		R.f.Close()
		return nil, errDecorate(err, "NewRecordReader "+filename)
	}
	if err := R.readHeader(); err != nil {
		R.Close()
		return nil, errDecorate(err, "NewRecordReader "+filename)
	}
	return R, nil
}

func (R *RecordReader) readHeader() error {
	head := make([]byte, len(recordMagic)+2)
	if _, err := io.ReadFull(R.h, head); err != nil {
		return err
	}
	if string(head[:len(recordMagic)]) != recordMagic {
		return CError{msg: "kbody: " + R.filename + " is not a record file"}
	}
	if head[len(recordMagic)] != recordVersion {
		return CError{msg: "kbody: unsupported record version in " + R.filename}
	}
	R.forces = head[len(recordMagic)+1] == 1
	dims := make([]int32, 6)
	if err := binary.Read(R.h, binary.LittleEndian, dims); err != nil {
		return err
	}
	R.rows, R.cols = int(dims[0]), int(dims[1])
	R.numTypes = int(dims[2])
	R.maxReal = int(dims[3])
	R.idxRows, R.idxCols = int(dims[4]), int(dims[5])
	return nil
}

// Shape returns the feature dimensions of every record in the file.
func (R *RecordReader) Shape() (int, int) { return R.rows, R.cols }

// NumAtomTypes returns the length of the per-record Occurs vector.
func (R *RecordReader) NumAtomTypes() int { return R.numTypes }

// ForcesEnabled returns whether records carry force data.
func (R *RecordReader) ForcesEnabled() bool { return R.forces }

// IndexingShape returns the dimensions of the per-record Indexing array.
func (R *RecordReader) IndexingShape() (int, int) { return R.idxRows, R.idxCols }

// Next decodes the next record. It returns io.EOF, and no record, after
// the last one.
func (R *RecordReader) Next() (*Record, error) {
	le := binary.LittleEndian
	var negEnergy float64
	err := binary.Read(R.h, le, &negEnergy)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errDecorate(err, "Next "+R.filename)
	}
	rec := new(Record)
	rec.Energy = -negEnergy
	var lw float32
	if err := binary.Read(R.h, le, &lw); err != nil {
		return nil, errDecorate(err, "Next "+R.filename)
	}
	rec.LossWeight = float64(lw)
	rec.Occurs = make([]float32, R.numTypes)
	rec.Weights = make([]float32, R.rows)
	rec.Features = make([]float32, R.rows*R.cols)
	for _, dst := range [][]float32{rec.Occurs, rec.Weights, rec.Features} {
		if err := binary.Read(R.h, le, dst); err != nil {
			return nil, errDecorate(err, "Next "+R.filename)
		}
	}
	if !R.forces {
		return rec, nil
	}
	rec.Forces = make([]float32, R.maxReal*3)
	rec.Coef = make([]float32, R.rows*6*R.cols)
	for _, dst := range [][]float32{rec.Forces, rec.Coef} {
		if err := binary.Read(R.h, le, dst); err != nil {
			return nil, errDecorate(err, "Next "+R.filename)
		}
	}
	rec.Indexing = make([]int32, R.idxRows*R.idxCols)
	if err := binary.Read(R.h, le, rec.Indexing); err != nil {
		return nil, errDecorate(err, "Next "+R.filename)
	}
	return rec, nil
}

// Close closes the reader.
func (R *RecordReader) Close() error {
	if R == nil {
		return nil
	}
	err1 := R.h.Close()
	err2 := R.f.Close()
	if err1 != nil {
		return errDecorate(err1, "Close "+R.filename)
	}
	if err2 != nil {
		return errDecorate(err2, "Close "+R.filename)
	}
	return nil
}

// TransformAndWrite transforms the given structures and streams them to
// filename, then fits the one-body baseline from everything written and,
// last of all, writes the JSON sidecar. lookupIndices, when not nil,
// records which dataset entries these structures were (for split
// bookkeeping); lossFn may be nil for unit loss weights. The fitted
// baseline weights are returned. On any failure the partial record file
// is removed and no sidecar is written.
func (F *FixedLenMultiTransformer) TransformAndWrite(filename string, structures []*Structure, lookupIndices []int, lossFn LossFunc) ([]float64, error) {
	W, err := NewRecordWriter(filename, F)
	if err != nil {
		return nil, errDecorate(err, "TransformAndWrite")
	}
	for _, s := range structures {
		sample, err := F.Transform(s)
		if err != nil {
			W.failed = true
			W.Close()
			return nil, errDecorate(err, "TransformAndWrite "+filename)
		}
		lw := 1.0
		if lossFn != nil {
			lw = lossFn(s.Energy)
		}
		if err := W.WriteSample(sample, s.Forces, lw); err != nil {
			W.Close()
			return nil, errDecorate(err, "TransformAndWrite "+filename)
		}
		if W.count%1000 == 0 {
			log.Printf("kbody: %s: %d/%d structures transformed", filename, W.count, len(structures))
		}
	}
	occurs, energies := W.BaselineData()
	if occurs == nil {
		W.failed = true
		W.Close()
		return nil, CError{msg: "kbody: no structures to write to " + filename}
	}
	weights, err := SolveBaseline(occurs, energies, F.NumRealAtomTypes())
	if err != nil {
		W.failed = true
		W.Close()
		return nil, errDecorate(err, "TransformAndWrite "+filename)
	}
	if err := W.Close(); err != nil {
		return nil, errDecorate(err, "TransformAndWrite")
	}
	if err := F.writeSidecar(filename, lookupIndices, weights); err != nil {
		return nil, errDecorate(err, "TransformAndWrite")
	}
	return weights, nil
}

func (F *FixedLenMultiTransformer) writeSidecar(filename string, lookupIndices []int, oneBodyWeights []float64) error {
	rows, cols := F.Shape()
	maxReal := F.MaxNumAtoms() - F.NumGhosts()
	if lookupIndices == nil {
		lookupIndices = []int{}
	}
	if oneBodyWeights == nil {
		oneBodyWeights = []float64{}
	}
	maxOccurs := make(map[string]int)
	for t, occ := range F.maxOccurs {
		if occ < unlimited {
			maxOccurs[t] = occ
		}
	}
	side := &Sidecar{
		KbodyTerms:            F.terms,
		SplitDims:             F.splitDims,
		Shape:                 [2]int{rows, cols},
		LookupIndices:         lookupIndices,
		NumAtomTypes:          F.NumAtomTypes(),
		Species:               F.types,
		IncludeAllK:           F.opts.IncludeAllK,
		Periodic:              F.opts.Periodic,
		KMax:                  F.opts.KMax,
		MaxOccurs:             maxOccurs,
		NormOrder:             F.opts.NormOrder,
		InitialOneBodyWeights: oneBodyWeights,
		AtomicForcesEnabled:   F.opts.AtomicForces,
		IndexingShape:         [2]int{3 * maxReal, numForceEntries(maxReal, F.KMax())},
	}
	data, err := json.MarshalIndent(side, "", "  ")
	if err != nil {
		return errDecorate(err, "writeSidecar")
	}
	if err := os.WriteFile(sidecarName(filename), data, 0644); err != nil {
		return errDecorate(err, "writeSidecar")
	}
	return nil
}
