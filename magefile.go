//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

// Build compiles every executable into ./bin
func Build() error {
	mg.Deps(BuildPx2Mf, BuildCl2Mf, BuildMo2Mf)
	mg.Deps(BuildMfFilter, BuildMfUpdater)
	mg.Deps(BuildMeasureAlgos)
	fmt.Println("Compilation finished")
	return nil
}

func goBuild(name string) error {
	fmt.Printf("Building %s executable...\n", name)
	cmd := exec.Command("go", "build", "-o", "./bin/"+name, "./"+name)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func BuildPx2Mf() error {
	return goBuild("px2mf")
}

func BuildCl2Mf() error {
	return goBuild("cl2mf")
}

func BuildMo2Mf() error {
	return goBuild("mo2mf")
}

func BuildMfFilter() error {
	return goBuild("mffilter")
}

func BuildMfUpdater() error {
	return goBuild("mfupdater")
}

func BuildMeasureAlgos() error {
	return goBuild("measureAlgos")
}

// Test runs the package tests
func Test() error {
	cmd := exec.Command("go", "test", "./...")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
