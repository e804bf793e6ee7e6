package emath

// Some basic planar transformations, used in image alignment

import(
	"fmt"
	"math"
	"golang.org/x/image/math/f64"  // Will be "image/math/f64" at some point, hopefully make this file redundant
)

// Use a local type so we can hang methods off it
type Aff3 f64.Aff3

// Cut-n-pasted from image@0.7.0/draw/scale:matMul
func (p Aff3)Mult(q Aff3) Aff3 {
	return Aff3{
		p[3*0+0]*q[3*0+0] + p[3*0+1]*q[3*1+0],
		p[3*0+0]*q[3*0+1] + p[3*0+1]*q[3*1+1],
		p[3*0+0]*q[3*0+2] + p[3*0+1]*q[3*1+2] + p[3*0+2],
		p[3*1+0]*q[3*0+0] + p[3*1+1]*q[3*1+0],
		p[3*1+0]*q[3*0+1] + p[3*1+1]*q[3*1+1],
		p[3*1+0]*q[3*0+2] + p[3*1+1]*q[3*1+2] + p[3*1+2],
	}
}

func Identity() Aff3 {
	return Aff3{1, 0, 0,   0, 1, 0}
}

func (m1 Aff3)Translate(tx, ty float64) Aff3 {
	return m1.Mult(Aff3{1, 0, tx,   0, 1, ty})
}

func (m1 Aff3)Rotate(thetaDeg float64) Aff3 {
	return m1.RotateRad(thetaDeg * math.Pi / 180.0)
}

func (m1 Aff3)RotateRad(theta float64) Aff3 {
	cosTheta := math.Cos(theta)
	sinTheta := math.Sin(theta)
	return m1.Mult(Aff3{cosTheta, -1*sinTheta, 0,    sinTheta, cosTheta, 0})
}

func RotateAbout(thetaDeg, x, y float64) Aff3 {
	// Remember they compose back to front - rightmost operations performed first
	return Identity().Translate(x, y).Rotate(thetaDeg).Translate(-1*x, -1*y)
}

func (m Aff3)Apply(p Vec2) Vec2 {
	return Vec2{
		m[0]*p[0] + m[1]*p[1] + m[2],
		m[3]*p[0] + m[4]*p[1] + m[5],
	}
}

// Invert returns the inverse transform; false if the linear part is singular.
func (m Aff3)Invert() (Aff3, bool) {
	det := m[0]*m[4] - m[1]*m[3]
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return Aff3{}, false
	}
	a, b, c, d := m[4]/det, -m[1]/det, -m[3]/det, m[0]/det
	return Aff3{
		a, b, -(a*m[2] + b*m[5]),
		c, d, -(c*m[2] + d*m[5]),
	}, true
}

func (m Aff3)String() string {
	return fmt.Sprintf("[%10f, %10f, %10f]\n[%10f, %10f, %10f]\n", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Points in the image plane
type Vec2 f64.Vec2

func (v Vec2)Add(w Vec2) Vec2 { return Vec2{v[0]+w[0], v[1]+w[1]} }
func (v Vec2)Dist(w Vec2) float64 { return math.Hypot(v[0]-w[0], v[1]-w[1]) }

func (v Vec2)String() string {
	return fmt.Sprintf("(%.4f, %.4f)", v[0], v[1])
}

// Actual 3x3 matrixes, used for planar (projective) warps
type Vec3 f64.Vec3
type Mat3 f64.Mat3

func Identity3() Mat3 {
	return Mat3{1, 0, 0,   0, 1, 0,   0, 0, 1}
}

func (m Mat3)Apply(v Vec3) Vec3 {
	return Vec3{
		(m[3*0+0]*v[0] + m[3*0+1]*v[1] + m[3*0+2]*v[2]),
	  (m[3*1+0]*v[0] + m[3*1+1]*v[1] + m[3*1+2]*v[2]),
	  (m[3*2+0]*v[0] + m[3*2+1]*v[1] + m[3*2+2]*v[2]),
	}
}

// ApplyPoint maps the point through the matrix, including the homogeneous divide.
func (m Mat3)ApplyPoint(p Vec2) Vec2 {
	v := m.Apply(Vec3{p[0], p[1], 1})
	return Vec2{v[0] / v[2], v[1] / v[2]}
}

// IsAffine is true if the bottom row is [0 0 1]
func (m Mat3)IsAffine() bool {
	return m[6] == 0 && m[7] == 0 && m[8] == 1
}

// Aff3 drops the bottom row; only meaningful if IsAffine()
func (m Mat3)Aff3() Aff3 {
	return Aff3{m[0], m[1], m[2],   m[3], m[4], m[5]}
}

func (m Mat3)String() string {
	str := fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*0+0], m[3*0+1], m[3*0+2])
	str += fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*1+0], m[3*1+1], m[3*1+2])
	str += fmt.Sprintf("[%10f, %10f, %10f]\n", m[3*2+0], m[3*2+1], m[3*2+2])
	return str
}
