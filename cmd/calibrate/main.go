// Command calibrate manages map calibration: it fits the affine transform
// from game-coordinate/map-position point pairs and maintains the
// calibration file used by the tracker daemon.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"game-navigator/internal/calibrate"
)

func main() {
	var (
		file     = flag.String("file", "calibration_data.json", "Path to the calibration file")
		provider = flag.String("provider", "", "Online tile provider (empty for a local map)")
		mapName  = flag.String("map", "default", "Local map name, or provider area when -provider is set")
		points   = flag.String("points", "", "JSON file with calibration point pairs")
		del      = flag.Bool("delete", false, "Delete the stored calibration for the selected map")
		list     = flag.Bool("list", false, "List all stored calibrations")
	)
	flag.Parse()

	store := calibrate.NewStore(*file)

	mode, name, area := calibrate.ModeLocal, *mapName, ""
	if *provider != "" {
		mode, name, area = calibrate.ModeOnline, *provider, *mapName
	}
	key := calibrate.MapKey(mode, name, area)

	switch {
	case *list:
		listCalibrations(store)
	case *del:
		if err := store.Delete(mode, name, area); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to delete %s: %v\n", key, err)
			os.Exit(1)
		}
		fmt.Printf("Deleted calibration %s\n", key)
	case *points != "":
		solveAndSave(store, mode, name, area, key, *points)
	default:
		showCalibration(store, mode, name, area, key)
	}
}

func listCalibrations(store *calibrate.Store) {
	records, err := store.LoadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read calibration file: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Println("No calibrations stored")
		return
	}

	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r := records[k]
		fmt.Printf("%-40s saved %s\n", k, r.Timestamp)
	}
}

func solveAndSave(store *calibrate.Store, mode, name, area, key, pointsPath string) {
	data, err := os.ReadFile(pointsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read points file: %v\n", err)
		os.Exit(1)
	}

	var pts []calibrate.Point
	if err := json.Unmarshal(data, &pts); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse points file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d calibration points\n", len(pts))

	t, err := calibrate.Solve(pts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Calibration failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Transform: a=%.9g b=%.9g c=%.9g d=%.9g e=%.9g f=%.9g\n",
		t.A, t.B, t.C, t.D, t.E, t.F)
	fmt.Printf("Mean residual: %.6f\n", calibrate.Residual(t, pts))

	if err := store.Save(mode, name, area, t); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to save calibration: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Saved calibration %s\n", key)
}

func showCalibration(store *calibrate.Store, mode, name, area, key string) {
	t, err := store.Load(mode, name, area)
	if err == calibrate.ErrNotCalibrated {
		fmt.Printf("No calibration stored for %s\n", key)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load calibration: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Calibration %s:\n", key)
	fmt.Printf("  a=%.9g b=%.9g c=%.9g\n", t.A, t.B, t.C)
	fmt.Printf("  d=%.9g e=%.9g f=%.9g\n", t.D, t.E, t.F)
	if inv, ok := t.Inverse(); ok {
		gx, gy := inv.Apply(0, 0)
		fmt.Printf("  map origin maps to game (%.1f, %.1f)\n", gx, gy)
	} else {
		fmt.Println("  transform is singular, inverse unavailable")
	}
}
