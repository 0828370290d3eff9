// Command tracksim replays recorded readout text through the tracking state
// machine. Each input line is one tick: a coordinate string as the
// recognizer would produce it, or a blank line for a failed read. Useful
// for tuning jump and lost thresholds against captured sessions.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"game-navigator/internal/ocr"
	"game-navigator/internal/track"
	"game-navigator/pkg/geometry"
)

func main() {
	var (
		file       = flag.String("file", "", "Readout log, one line per tick (default stdin)")
		maxSpeed   = flag.Float64("max-speed", 1000, "Horizontal displacement threshold per tick")
		zThreshold = flag.Int64("z-threshold", 50, "Height displacement threshold per tick")
		lostFrames = flag.Int("lost-frames", 5, "Consecutive failures before the lock is lost")
		verbose    = flag.Bool("v", false, "Print every tick, not only transitions")
	)
	flag.Parse()

	in := os.Stdin
	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open input: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	alphabet := ocr.DefaultAlphabet()
	tracker := track.NewTracker(alphabet, track.Params{
		MaxSpeedThreshold:   *maxSpeed,
		ZAxisThreshold:      *zThreshold,
		LostThresholdFrames: *lostFrames,
	})

	var ticks, accepted, jumps int
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		ticks++
		line := strings.TrimSpace(scanner.Text())
		res := tracker.Evaluate(syntheticDetections(alphabet, line))

		if res.Accepted {
			accepted++
		}
		if res.JumpRejected {
			jumps++
		}
		if *verbose || res.StateChanged || res.JumpRejected {
			status := "miss"
			if res.Accepted {
				status = res.Coordinate.String()
			} else if res.JumpRejected {
				status = "jump rejected"
			}
			fmt.Printf("tick %4d  %-9s %s\n", ticks, res.State, status)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\n%d ticks, %d accepted, %d jump rejections, final state %s\n",
		ticks, accepted, jumps, tracker.State())
}

// syntheticDetections lays the line's glyphs out left to right with uniform
// boxes, the way a clean recognition of the readout would look.
func syntheticDetections(alphabet *ocr.Alphabet, line string) []ocr.Detection {
	const width, gap = 10.0, 2.0
	var dets []ocr.Detection
	x := 0.0
	for _, r := range line {
		class := alphabet.ClassOf(string(r))
		if class < 0 {
			continue
		}
		dets = append(dets, ocr.Detection{
			ClassID:    class,
			Box:        geometry.Box{X1: x, Y1: 0, X2: x + width, Y2: 20},
			Confidence: 1,
		})
		x += width + gap
	}
	return dets
}
