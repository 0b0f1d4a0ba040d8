package codec

import "math"

// Vec3 is a 3-component single precision vector.
type Vec3 struct {
	X, Y, Z float32
}

// Add returns v+o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v-o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Quaternion is a rotation stored as w, x, y, z.
type Quaternion struct {
	W, X, Y, Z float32
}

// Identity is the no-rotation quaternion.
var Identity = Quaternion{W: 1}

// QuaternionFromYaw returns the rotation of yaw radians around the Y axis.
func QuaternionFromYaw(yaw float64) Quaternion {
	s, c := math.Sincos(yaw / 2)
	return Quaternion{W: float32(c), Y: float32(s)}
}

// ToEuler converts q to Euler angles in radians (x = pitch, y = yaw, z = roll).
// Non-normalized quaternions are corrected for their length.
func (q Quaternion) ToEuler() Vec3 {
	w, x, y, z := float64(q.W), float64(q.X), float64(q.Y), float64(q.Z)
	unit := x*x + y*y + z*z + w*w
	test := x*w - y*z

	var ex, ey, ez float64
	switch {
	case test > 0.4995*unit:
		// singularity at the north pole
		ex = math.Pi / 2
		ey = 2 * math.Atan2(y, x)
	case test < -0.4995*unit:
		// singularity at the south pole
		ex = -math.Pi / 2
		ey = -2 * math.Atan2(y, x)
	default:
		ex = math.Asin(2 * (w*x - y*z))
		ey = math.Atan2(2*w*y+2*z*x, 1-2*(x*x+y*y))
		ez = math.Atan2(2*w*z+2*x*y, 1-2*(z*z+x*x))
	}
	return Vec3{X: float32(ex), Y: float32(ey), Z: float32(ez)}
}

// Color is an 8-bit RGBA color.
type Color struct {
	R, G, B, A uint8
}
