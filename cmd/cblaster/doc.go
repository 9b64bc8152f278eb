// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main implements the cblaster CLI.
//
// cblaster finds clusters of co-located homologous genes. The query
// proteins are searched remotely against NCBI BLAST or locally with
// DIAMOND, the genomic position of every hit is looked up in NCBI's
// Identical Protein Groups, and hits that sit close together on a
// scaffold are reported as clusters.
//
// # Quick Start
//
// Create a configuration with your NCBI e-mail address:
//
//	cblaster init -y --email you@example.org
//
// Search NCBI nr:
//
//	cblaster search -qf cluster.fasta
//
// Search a local DIAMOND database:
//
//	cblaster search -m local -db proteins.dmnd -qf cluster.fasta
//
// # Commands
//
//	search   Run a search and summarise the clusters found
//	init     Create .cblaster/config.yaml
//	config   Show the effective configuration
//
// Global flags:
//
//	--version      Show version information and exit
//	--config PATH  Path to .cblaster/config.yaml
//	--json         Report errors (and config) as JSON
package main
