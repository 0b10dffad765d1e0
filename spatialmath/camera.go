// Package spatialmath holds the rotation and pose helpers used to place dataset cameras in
// world space.
package spatialmath

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// NewQuaternion builds a quaternion from the COLMAP (qw, qx, qy, qz) ordering.
func NewQuaternion(qvec [4]float64) quat.Number {
	return quat.Number{Real: qvec[0], Imag: qvec[1], Jmag: qvec[2], Kmag: qvec[3]}
}

// QuatToRotationMatrix converts a quaternion to a 3x3 rotation matrix. The quaternion is not
// renormalized; COLMAP writes unit quaternions.
func QuatToRotationMatrix(q quat.Number) *mat.Dense {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*y*y - 2*z*z, 2*x*y - 2*w*z, 2*z*x + 2*w*y,
		2*x*y + 2*w*z, 1 - 2*x*x - 2*z*z, 2*y*z - 2*w*x,
		2*z*x - 2*w*y, 2*y*z + 2*w*x, 1 - 2*x*x - 2*y*y,
	})
}

// Transpose returns a new dense copy of the transpose of m.
func Transpose(m mat.Matrix) *mat.Dense {
	return mat.DenseCopyOf(m.T())
}

// World2View builds the 4x4 world-to-camera matrix from a camera-to-world rotation r and a
// world-to-camera translation t. The upper-left block is r transposed.
func World2View(r mat.Matrix, t r3.Vector) *mat.Dense {
	rt := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rt.Set(i, j, r.At(j, i))
		}
	}
	rt.Set(0, 3, t.X)
	rt.Set(1, 3, t.Y)
	rt.Set(2, 3, t.Z)
	rt.Set(3, 3, 1)
	return rt
}

// CameraCenter returns the camera position in world space, the translation column of the
// inverted world-to-view matrix.
func CameraCenter(r mat.Matrix, t r3.Vector) (r3.Vector, error) {
	var c2w mat.Dense
	if err := c2w.Inverse(World2View(r, t)); err != nil {
		return r3.Vector{}, errors.Wrap(err, "world to view matrix is not invertible")
	}
	return r3.Vector{X: c2w.At(0, 3), Y: c2w.At(1, 3), Z: c2w.At(2, 3)}, nil
}

// RowVecMulMat computes v*m for a row vector v and a 3x3 matrix m.
func RowVecMulMat(v r3.Vector, m mat.Matrix) r3.Vector {
	return r3.Vector{
		X: v.X*m.At(0, 0) + v.Y*m.At(1, 0) + v.Z*m.At(2, 0),
		Y: v.X*m.At(0, 1) + v.Y*m.At(1, 1) + v.Z*m.At(2, 1),
		Z: v.X*m.At(0, 2) + v.Y*m.At(1, 2) + v.Z*m.At(2, 2),
	}
}

// NewRotationMatrixFromRows builds a 3x3 matrix from row-major nested slices, validating shape.
func NewRotationMatrixFromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) != 3 {
		return nil, errors.Errorf("rotation matrix needs 3 rows, got %d", len(rows))
	}
	data := make([]float64, 0, 9)
	for i, row := range rows {
		if len(row) != 3 {
			return nil, errors.Errorf("rotation matrix row %d needs 3 columns, got %d", i, len(row))
		}
		data = append(data, row...)
	}
	return mat.NewDense(3, 3, data), nil
}
