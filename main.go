// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Helix - OpenPCR Serial Protocol Toolkit
//
// A CLI tool for monitoring, driving and emulating OpenPCR thermocyclers
// over their serial control protocol.

package main

import (
	"os"

	"github.com/Thermoquad/helix/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
