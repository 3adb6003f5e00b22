// SPDX-License-Identifier: MPL-2.0

package main

import "github.com/kspmod/kspmod/cmd/kspmod"

func main() {
	cmd.Execute()
}
