// Command unkrawerter extracts every Krawall-engine song from a GBA ROM
// and writes each as an XM or S3M file, picking the target format per
// module the way the library's ChooseFormat does.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jackmacwindows/unkrawerter"
	"github.com/jackmacwindows/unkrawerter/discover"
	"github.com/jackmacwindows/unkrawerter/internal/krawall"
	"github.com/jackmacwindows/unkrawerter/rom"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) < 2 || args[1] == "-h" {
		fmt.Fprintf(os.Stderr, "Usage: %s <rom.gba> [output dir] [search threshold] [verbose]\n", args[0])
		return 1
	}

	r, err := rom.OpenFile(args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not open file %s for reading.\n", args[1])
		return 2
	}

	opts := unkrawerter.DefaultOptions()
	if len(args) > 3 {
		if t, err := strconv.Atoi(args[3]); err == nil {
			opts.Threshold = t
		}
	}
	opts.Verbose = len(args) > 4

	if _, ok := krawall.DetectVersion(r); !ok {
		fmt.Printf("Warning: could not find Krawall signature in %s. Are you sure this game uses the Krawall engine?\n", romTitle(r))
	}

	result, err := unkrawerter.Discover(r, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "discover: %v\n", err)
		return 3
	}
	if !result.Success {
		fmt.Fprintln(os.Stderr, "Could not find all of the offsets required.")
		fmt.Fprintln(os.Stderr, " * Does the ROM use the Krawall engine?")
		fmt.Fprintln(os.Stderr, " * Try adjusting the search threshold.")
		fmt.Fprintln(os.Stderr, " * You may need to find offsets yourself.")
		return 3
	}

	outdir := ""
	if len(args) > 2 {
		outdir = args[2]
	}
	names := loadSidecarNames(args[1], len(result.Modules))

	for i, moduleOffset := range result.Modules {
		name := names[i]
		if name == "" {
			name = fmt.Sprintf("Module%d", i)
		}
		moduleOpts := opts
		moduleOpts.Name = name

		if code := convertModule(r, moduleOffset, result, outdir, name, moduleOpts); code != 0 {
			return code
		}
	}

	return 0
}

// convertModule writes one module, returning the process exit code to
// use on failure, or 0 on success.
func convertModule(r *rom.Handle, moduleOffset uint32, result discover.Result, outdir, name string, opts unkrawerter.Options) int {
	format, err := unkrawerter.DetectFormat(r, moduleOffset, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		return 3
	}

	path := name + "." + format
	if outdir != "" {
		path = filepath.Join(outdir, path)
	}
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, fmt.Errorf("%w: %v", krawall.ErrIO, err))
		return 2
	}
	defer f.Close()

	if _, err := unkrawerter.WriteModule(f, r, moduleOffset, result, opts); err != nil {
		switch {
		case errors.Is(err, krawall.ErrTooManyInstruments), errors.Is(err, krawall.ErrTooManySamples):
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			return 10
		case errors.Is(err, krawall.ErrUnsupported), errors.Is(err, krawall.ErrMissingInstruments), errors.Is(err, krawall.ErrOffsetsNotFound):
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			return 3
		default:
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			return 2
		}
	}

	fmt.Printf("Wrote: %s\n", path)
	return 0
}

func romTitle(r *rom.Handle) string {
	if r.Title == "" {
		return "unknown ROM"
	}
	return r.Title
}

// loadSidecarNames reads "<rom path without extension>.names.txt" if
// present, one module name per line, in the order discovery reported the
// modules. Missing or short files leave the
// corresponding entries empty so the caller falls back to "ModuleN".
func loadSidecarNames(romPath string, count int) []string {
	names := make([]string, count)

	f, err := os.Open(strings.TrimSuffix(romPath, filepath.Ext(romPath)) + ".names.txt")
	if err != nil {
		return names
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for i := 0; i < count && scanner.Scan(); i++ {
		names[i] = strings.TrimSpace(scanner.Text())
	}
	return names
}
