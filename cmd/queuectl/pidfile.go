package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// The PID file is a JSON array of the process IDs of running
// "worker start" processes. Every process adds itself on start and
// removes itself on exit; "worker stop" signals them all and deletes
// the file. Updates are serialized with an advisory lock on path+".lock".

// readPIDs returns the recorded PIDs. A missing file means none.
func readPIDs(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pid file: %w", err)
	}
	var pids []int
	if len(data) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(data, &pids); err != nil {
		return nil, fmt.Errorf("parse pid file %s: %w", path, err)
	}
	return pids, nil
}

// addPID records pid in the PID file, creating it if needed.
func addPID(path string, pid int) error {
	return updatePIDs(path, func(pids []int) []int {
		if slices.Contains(pids, pid) {
			return pids
		}
		return append(pids, pid)
	})
}

// removePID drops pid from the PID file and deletes the file once empty.
func removePID(path string, pid int) error {
	return updatePIDs(path, func(pids []int) []int {
		return slices.DeleteFunc(pids, func(p int) bool { return p == pid })
	})
}

func updatePIDs(path string, fn func([]int) []int) error {
	unlock, err := lockFile(path + ".lock")
	if err != nil {
		return fmt.Errorf("lock pid file: %w", err)
	}
	defer unlock()

	pids, err := readPIDs(path)
	if err != nil {
		return err
	}
	pids = fn(pids)

	if len(pids) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove pid file: %w", err)
		}
		return nil
	}
	return writePIDs(path, pids)
}

// writePIDs replaces the file atomically so readers never see a partial array.
func writePIDs(path string, pids []int) error {
	data, err := json.MarshalIndent(pids, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write pid file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write pid file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// clearPIDs deletes the PID file and returns what it held.
func clearPIDs(path string) ([]int, error) {
	unlock, err := lockFile(path + ".lock")
	if err != nil {
		return nil, fmt.Errorf("lock pid file: %w", err)
	}
	defer unlock()

	pids, err := readPIDs(path)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove pid file: %w", err)
	}
	return pids, nil
}
