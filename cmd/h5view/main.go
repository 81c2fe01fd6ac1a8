// Command h5view browses, exports and compares HDF5 files.
package main

import "github.com/robert-malhotra/h5view/cmd/h5view/cmd"

func main() {
	cmd.Execute()
}
