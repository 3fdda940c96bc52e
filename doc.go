/*
 * doc.go, part of kbody.
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

/*
Package kbody transforms sets of atomic coordinates (and, optionally,
per-atom forces) into fixed-shape feature matrices for many-body-expansion
energy models.

The central idea is that the total energy of a molecule can be expanded as
a sum over k-body interactions. For each canonical combination of k atomic
species (a "k-body term"), the library enumerates every way of picking
concrete atoms realizing it, reads the interatomic distances of those
selections from the pairwise distance matrix, normalizes them with an
exponential decay over covalent reference lengths, and scatters them into
a per-term block of a feature matrix. Two corrections make the result a
proper invariant: columns belonging to interchangeable bond types are
sorted row-wise (so relabeling identical atoms never changes the output),
and inert "ghost" atoms pad the species list so one matrix shape can host
every real expansion order up to KMax.

A Transformer does this for one fixed chemical formula; a MultiTransformer
caches one Transformer per formula; a FixedLenMultiTransformer additionally
pins the per-term block sizes from per-species maximum occurrences, so
every formula of a dataset maps onto one shared matrix shape, as batched
training requires. Transformed samples are streamed to compressed record
files with a JSON sidecar describing the static layout.

Coordinates are given as gonum *mat.Dense matrices of shape N-by-3, one
row per atom, in the same order as the species list.
*/
package kbody
