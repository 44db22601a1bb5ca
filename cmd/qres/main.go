package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-qres/qres"
	"github.com/google/renameio"
	"github.com/mattn/go-isatty"
)

const usage = `qres - qres resource container CLI tool

Usage:
  qres header <file>                   Show the container header
  qres entries <file>                  List raw tree entries
  qres names <file>                    List raw name table records
  qres tree <file>                     Pretty-print the tree
  qres ls <file> [<path>]              List the children of a directory
  qres cat <file> <path>               Print a file's decompressed contents
  qres rm <file> <path> [-o <out>]     Remove an entry, writing the result
  qres mv <file> <src> <dst> [-o <out>] Move an entry into directory dst
  qres add <file> <host-file> <dst> [-o <out>] Insert host-file into directory dst
  qres repack <file> [-o <out>]        Rewrite a container from scratch
  qres help                            Show this help message
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "header":
		err = requireArgs(2, func() error { return showHeader(os.Args[2]) })
	case "entries":
		err = requireArgs(2, func() error { return showEntries(os.Args[2]) })
	case "names":
		err = requireArgs(2, func() error { return showNames(os.Args[2]) })
	case "tree":
		err = requireArgs(2, func() error { return showTree(os.Args[2]) })
	case "ls":
		err = requireArgs(2, func() error {
			path := ":/"
			if len(os.Args) > 3 {
				path = os.Args[3]
			}
			return lsCmd(os.Args[2], path)
		})
	case "cat":
		err = requireArgs(3, func() error { return catCmd(os.Args[2], os.Args[3]) })
	case "rm":
		err = requireArgs(3, func() error { return rmCmd(os.Args[2], os.Args[3]) })
	case "mv":
		err = requireArgs(4, func() error { return mvCmd(os.Args[2], os.Args[3], os.Args[4]) })
	case "add":
		err = requireArgs(4, func() error { return addCmd(os.Args[2], os.Args[3], os.Args[4]) })
	case "repack":
		err = requireArgs(2, func() error { return repackCmd(os.Args[2]) })
	case "help":
		fmt.Println(usage)
		return
	default:
		fmt.Printf("Error: Unknown command '%s'\n", cmd)
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func requireArgs(min int, fn func() error) error {
	if len(os.Args) <= min {
		fmt.Println("Error: missing arguments")
		fmt.Println(usage)
		os.Exit(1)
	}
	return fn()
}

// outputFlag returns the path passed via a trailing "-o <path>" pair, if
// any, and the remaining arguments with it stripped.
func outputFlag(args []string) (out string, rest []string) {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-o" {
			return args[i+1], append(append([]string{}, args[:i]...), args[i+2:]...)
		}
	}
	return "", args
}

func openFile(path string) (*os.File, error) {
	return os.Open(path)
}

func showHeader(path string) error {
	f, err := openFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := qres.NewReader(f)
	if err != nil {
		return err
	}
	fmt.Printf("version:      %d\n", r.Version)
	fmt.Printf("tree_offset:  %d\n", r.TreeOffset)
	fmt.Printf("data_offset:  %d\n", r.DataOffset)
	fmt.Printf("names_offset: %d\n", r.NamesOffset)
	if r.Version >= 3 {
		fmt.Printf("overall_flags: %s\n", qres.Flags(r.OverallFlags))
	}
	return nil
}

func showEntries(path string) error {
	f, err := openFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := qres.NewReader(f)
	if err != nil {
		return err
	}
	entries, err := r.DumpEntries()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Flags.IsDir() {
			fmt.Printf("%d\t%-20s flags=%-10s child_count=%d first_child=%d\n",
				e.Index, e.Name, e.Flags, e.ChildCount, e.FirstChild)
		} else {
			fmt.Printf("%d\t%-20s flags=%-10s data_offset=%d\n",
				e.Index, e.Name, e.Flags, e.DataOffset)
		}
	}
	return nil
}

func showNames(path string) error {
	f, err := openFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := qres.NewReader(f)
	if err != nil {
		return err
	}
	names, err := r.DumpNames()
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Printf("%d\t%08x\t%s\n", n.Offset, n.Hash, n.Name)
	}
	return nil
}

func showTree(path string) error {
	f, lib, err := openLibrary(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return lib.PrintTree(os.Stdout)
}

func lsCmd(path, dirPath string) error {
	f, lib, err := openLibrary(path)
	if err != nil {
		return err
	}
	defer f.Close()
	names, err := lib.Ls(dirPath)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func catCmd(path, filePath string) error {
	f, lib, err := openLibrary(path)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := lib.Cat(filePath)
	if err != nil {
		return err
	}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return fmt.Errorf("refusing to write binary data to a terminal; redirect stdout")
	}
	_, err = os.Stdout.Write(data)
	return err
}

func rmCmd(path, entryPath string) error {
	f, lib, err := openLibrary(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := lib.Rm(entryPath); err != nil {
		return err
	}
	return saveResult(path, lib)
}

func mvCmd(path, src, dst string) error {
	f, lib, err := openLibrary(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := lib.Mv(src, dst); err != nil {
		return err
	}
	return saveResult(path, lib)
}

func addCmd(path, hostFile, dst string) error {
	f, lib, err := openLibrary(path)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := os.ReadFile(hostFile)
	if err != nil {
		return err
	}
	entryPath := strings.TrimRight(dst, "/") + "/" + filepath.Base(hostFile)
	if err := lib.Add(entryPath, data); err != nil {
		return err
	}
	return saveResult(path, lib)
}

func repackCmd(path string) error {
	f, lib, err := openLibrary(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return saveResult(path, lib)
}

// openLibrary opens path and materializes its tree, returning the open file
// alongside the library. Pre-existing file entries hold a lazy reference
// back to this file (they defer their body read until Cat/Save actually
// runs), so the caller must keep it open for as long as the library is used
// and close it only once done — never defer-close inside this helper.
func openLibrary(path string) (*os.File, *qres.ResourceLibrary, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, nil, err
	}
	lib, err := qres.Open(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, lib, nil
}

// saveResult writes lib back out. With no -o flag on os.Args, the rewritten
// container goes to stdout (refused when stdout is a terminal); with
// -o <out>, it is written atomically to out via renameio instead.
func saveResult(path string, lib *qres.ResourceLibrary) error {
	out, _ := outputFlag(os.Args)
	if out == "" {
		if isatty.IsTerminal(os.Stdout.Fd()) {
			return fmt.Errorf("refusing to write binary data to a terminal; redirect stdout or pass -o")
		}
		// stdout may be a pipe, which cannot seek back to rewrite the header;
		// hiding *os.File's Seek makes Save stage the output in memory first.
		return lib.Save(struct{ io.Writer }{os.Stdout})
	}

	t, err := renameio.TempFile("", out)
	if err != nil {
		return err
	}
	defer t.Cleanup()

	if err := lib.Save(t); err != nil {
		return err
	}
	return t.CloseAtomicallyReplace()
}
