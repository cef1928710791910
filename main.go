package main

import (
	_ "time/tzdata"

	"github.com/kozaktomas/staff-attendance/cmd"
)

func main() {
	cmd.Execute()
}
