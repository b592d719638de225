//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the testbed scene on the headless backend.
func (Run) Testbed() error {
	fmt.Println("Run testbed...")
	if _, err := executeCmd("go", withArgs("run", ".", "-backend", "headless", "-frames", "600"), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the testbed scene on the Vulkan backend with validation layers.
func (Run) Vulkan() error {
	mg.Deps(Build.Engine)
	fmt.Println("Run testbed on vulkan...")
	if _, err := executeCmd("bin/prism", withArgs("-backend", "vulkan", "-validation"), withStream()); err != nil {
		return err
	}
	return nil
}
