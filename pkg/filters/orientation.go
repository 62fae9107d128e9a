package filters

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"thirdcoast.systems/camerakit/pkg/utils/crops"
)

// Rotation is a counterclockwise rotation in degrees.
type Rotation int

const (
	Rotate0   Rotation = 0
	Rotate90  Rotation = 90
	Rotate180 Rotation = 180
	Rotate270 Rotation = 270
)

// ParseRotation accepts any multiple of 90, positive or negative.
func ParseRotation(deg int) (Rotation, error) {
	if deg%90 != 0 {
		return Rotate0, fmt.Errorf("rotation must be a multiple of 90, got %d", deg)
	}
	return Rotation(((deg % 360) + 360) % 360), nil
}

// EXIFOrientation is the orientation tag stored with a capture (1-8).
// Zero is treated as 1.
type EXIFOrientation int

const (
	EXIFUpright     EXIFOrientation = 1
	EXIFFlipH       EXIFOrientation = 2
	EXIFRotate180   EXIFOrientation = 3
	EXIFFlipV       EXIFOrientation = 4
	EXIFTranspose   EXIFOrientation = 5
	EXIFRotate90CW  EXIFOrientation = 6
	EXIFTransverse  EXIFOrientation = 7
	EXIFRotate90CCW EXIFOrientation = 8
)

// Inverse returns the orientation that undoes o's correction.
func (o EXIFOrientation) Inverse() EXIFOrientation {
	switch o {
	case EXIFRotate90CW:
		return EXIFRotate90CCW
	case EXIFRotate90CCW:
		return EXIFRotate90CW
	default:
		return o
	}
}

// correct returns img rotated and flipped so that o becomes upright.
func (o EXIFOrientation) correct(img image.Image) image.Image {
	switch o {
	case EXIFFlipH:
		return imaging.FlipH(img)
	case EXIFRotate180:
		return imaging.Rotate180(img)
	case EXIFFlipV:
		return imaging.FlipV(img)
	case EXIFTranspose:
		return imaging.Transpose(img)
	case EXIFRotate90CW:
		return imaging.Rotate270(img)
	case EXIFTransverse:
		return imaging.Transverse(img)
	case EXIFRotate90CCW:
		return imaging.Rotate90(img)
	default:
		return img
	}
}

// OrientationCrop rotates, flips and crops. Flips are applied before the
// rotation; the crop rectangle is expressed against the rotated image.
type OrientationCrop struct {
	Rotation    Rotation
	FlipH       bool
	FlipV       bool
	Crop        crops.Crop
	Orientation EXIFOrientation
}

// NewOrientationCrop returns the identity orientation stage.
func NewOrientationCrop() *OrientationCrop {
	return &OrientationCrop{Crop: crops.Full(), Orientation: EXIFUpright}
}

func (o *OrientationCrop) Kind() Kind { return KindOrientationCrop }

// RotateLeft rotates 90 degrees counterclockwise.
func (o *OrientationCrop) RotateLeft() {
	o.Rotation = (o.Rotation + 90) % 360
}

// RotateRight rotates 90 degrees clockwise.
func (o *OrientationCrop) RotateRight() {
	o.Rotation = (o.Rotation + 270) % 360
}

// FlipHorizontal mirrors the image as currently displayed.
func (o *OrientationCrop) FlipHorizontal() {
	if o.Rotation == Rotate0 || o.Rotation == Rotate180 {
		o.FlipH = !o.FlipH
	} else {
		o.FlipV = !o.FlipV
	}
}

// FlipVertical mirrors the image upside down as currently displayed.
func (o *OrientationCrop) FlipVertical() {
	if o.Rotation == Rotate0 || o.Rotation == Rotate180 {
		o.FlipV = !o.FlipV
	} else {
		o.FlipH = !o.FlipH
	}
}

// Reset restores the identity transform and full crop.
func (o *OrientationCrop) Reset() {
	o.Rotation = Rotate0
	o.FlipH = false
	o.FlipV = false
	o.Crop = crops.Full()
}

// IsIdentity reports whether Apply would return its input unchanged.
func (o *OrientationCrop) IsIdentity() bool {
	return o.Rotation == Rotate0 && !o.FlipH && !o.FlipV && o.Crop.IsFull() && o.Crop.AspectRatio == ""
}

func (o *OrientationCrop) Apply(img image.Image) image.Image {
	if IsEmpty(img) || o.IsIdentity() {
		return img
	}

	out := o.Orientation.correct(img)

	if o.FlipH {
		out = imaging.FlipH(out)
	}
	if o.FlipV {
		out = imaging.FlipV(out)
	}

	switch o.Rotation {
	case Rotate90:
		out = imaging.Rotate90(out)
	case Rotate180:
		out = imaging.Rotate180(out)
	case Rotate270:
		out = imaging.Rotate270(out)
	}

	crop := o.Crop
	if crop.IsFull() && crop.AspectRatio != "" {
		// A bare ratio crops the center of whatever the rotation produced.
		b := out.Bounds()
		crop = crops.ForAspectRatio(b.Dx(), b.Dy(), crop.AspectRatio)
	}
	if !crop.IsFull() {
		r := crop.ToPixels(out.Bounds())
		if r.Empty() {
			return emptyImage()
		}
		// imaging.Crop re-anchors the result at the origin.
		out = imaging.Crop(out, r)
	}

	return o.Orientation.Inverse().correct(out)
}

func (o *OrientationCrop) Clone() Stage {
	cp := *o
	return &cp
}
