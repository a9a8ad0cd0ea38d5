// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/bytefuse/webexport/cmd/webexport"

func main() {
	cmd.Execute()
}
