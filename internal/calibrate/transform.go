// Package calibrate fits and applies the affine mapping between game-space
// coordinates and map-space (geographic) coordinates. A transform is fitted
// once from a handful of interactively sampled point pairs and then reused
// for every accepted coordinate.
package calibrate

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotEnoughPoints means fewer than two calibration points were given.
	ErrNotEnoughPoints = errors.New("calibration requires at least 2 points")
	// ErrSingular means the least-squares system could not be solved.
	ErrSingular = errors.New("calibration system is singular")
)

// Point pairs a game-space position with its map-space location.
type Point struct {
	GameX float64 `json:"game_x"`
	GameY float64 `json:"game_y"`
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
}

// Transform is the 6-parameter affine mapping
//
//	lat = a*gx + b*gy + c
//	lon = d*gx + e*gy + f
//
// It is an immutable value; fit a new one rather than mutating.
type Transform struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
	D float64 `json:"d"`
	E float64 `json:"e"`
	F float64 `json:"f"`
}

// Apply maps a game-space position to map space.
func (t Transform) Apply(gx, gy float64) (lat, lon float64) {
	lat = t.A*gx + t.B*gy + t.C
	lon = t.D*gx + t.E*gy + t.F
	return lat, lon
}

// Inverse returns the map-space to game-space transform, inverting the 2x2
// linear part. ok is false when the determinant is near zero; callers should
// fall back to a no-op in that case.
func (t Transform) Inverse() (Transform, bool) {
	det := t.A*t.E - t.B*t.D
	if math.Abs(det) < 1e-12 {
		return Transform{}, false
	}

	invDet := 1.0 / det
	return Transform{
		A: t.E * invDet,
		B: -t.B * invDet,
		C: (t.B*t.F - t.E*t.C) * invDet,
		D: -t.D * invDet,
		E: t.A * invDet,
		F: (t.D*t.C - t.A*t.F) * invDet,
	}, true
}

// ApplyInverse maps a map-space location back to game space. This is a
// best-effort reverse lookup: when the transform is degenerate the input is
// returned unchanged.
func (t Transform) ApplyInverse(lat, lon float64) (gx, gy float64) {
	inv, ok := t.Inverse()
	if !ok {
		return lat, lon
	}
	return inv.Apply(lat, lon)
}

// IsZero reports whether the transform is the zero value (never fitted).
func (t Transform) IsZero() bool {
	return t == Transform{}
}

// Solve fits a Transform from calibration points by linear least squares.
// Each point contributes two rows to a 2n x 6 design matrix:
//
//	[gx gy 1  0  0 0] . [a b c d e f]' = lat
//	[ 0  0 0 gx gy 1] . [a b c d e f]' = lon
//
// With exactly two points the system is under-determined; the SVD-based
// solve then yields the minimum-norm solution instead of failing, matching
// how the calibration UI has always behaved.
func Solve(points []Point) (Transform, error) {
	if len(points) < 2 {
		return Transform{}, ErrNotEnoughPoints
	}

	n := len(points)
	a := mat.NewDense(2*n, 6, nil)
	b := mat.NewVecDense(2*n, nil)

	for i, p := range points {
		a.Set(2*i, 0, p.GameX)
		a.Set(2*i, 1, p.GameY)
		a.Set(2*i, 2, 1)
		b.SetVec(2*i, p.Lat)

		a.Set(2*i+1, 3, p.GameX)
		a.Set(2*i+1, 4, p.GameY)
		a.Set(2*i+1, 5, 1)
		b.SetVec(2*i+1, p.Lon)
	}

	x, err := solveMinNorm(a, b)
	if err != nil {
		return Transform{}, err
	}

	return Transform{
		A: x[0], B: x[1], C: x[2],
		D: x[3], E: x[4], F: x[5],
	}, nil
}

// solveMinNorm computes the minimum-norm least-squares solution of a*x = b
// via the thin SVD pseudoinverse.
func solveMinNorm(a *mat.Dense, b *mat.VecDense) ([]float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, ErrSingular
	}

	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	rows, cols := a.Dims()
	// Singular values below tol are treated as zero, like numpy's default
	// rcond cutoff.
	tol := float64(max(rows, cols)) * values[0] * 2.220446049250313e-16

	x := make([]float64, cols)
	rank := 0
	for k, s := range values {
		if s <= tol {
			continue
		}
		rank++

		// coefficient = (u_k . b) / s_k
		var dot float64
		for r := 0; r < rows; r++ {
			dot += u.At(r, k) * b.AtVec(r)
		}
		coef := dot / s

		for c := 0; c < cols; c++ {
			x[c] += coef * v.At(c, k)
		}
	}
	if rank == 0 {
		return nil, ErrSingular
	}

	return x, nil
}

// Residual returns the mean distance between each point's actual map-space
// location and the transform's prediction, for reporting fit quality.
func Residual(t Transform, points []Point) float64 {
	if len(points) == 0 {
		return 0
	}
	var total float64
	for _, p := range points {
		lat, lon := t.Apply(p.GameX, p.GameY)
		total += math.Hypot(lat-p.Lat, lon-p.Lon)
	}
	return total / float64(len(points))
}
