package facematch

// Quality policy. These are fixed and intentionally not configurable.
const (
	// MinFaceAreaRatio is the minimum face box area relative to the image area.
	MinFaceAreaRatio = 0.05

	// MinImageSidePx is the minimum image width and height in pixels.
	MinImageSidePx = 100

	// MinFaceSidePx is the minimum face box width and height in pixels.
	MinFaceSidePx = 50
)

// Quality rejection reasons.
const (
	ReasonOK               = "ok"
	ReasonNoFace           = "no face detected"
	ReasonMultipleFaces    = "multiple faces detected"
	ReasonFaceTooSmallRel  = "face too small relative to image"
	ReasonFaceTooSmall     = "face too small in image"
	ReasonImageTooSmall    = "image too small"
	ReasonInvalidImageArea = "invalid image area"
)

// ValidateEncodingQuality gates enrollment and probe images on the detected face count
// and the size of the face relative to the image.
func ValidateEncodingQuality(detectedFaceCount int, faceBoundingBoxArea, imageArea float64) (bool, string) {
	if detectedFaceCount <= 0 {
		return false, ReasonNoFace
	}
	if detectedFaceCount > 1 {
		return false, ReasonMultipleFaces
	}
	if imageArea <= 0 {
		return false, ReasonInvalidImageArea
	}
	if faceBoundingBoxArea/imageArea < MinFaceAreaRatio {
		return false, ReasonFaceTooSmallRel
	}
	return true, ReasonOK
}

// Detection describes the faces found in one image.
type Detection struct {
	ImageWidth  int
	ImageHeight int
	Boxes       [][]float64 // [x1, y1, x2, y2] in pixels
}

// QualityReport is the outcome of ValidateDetection.
type QualityReport struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

// ValidateDetection runs the full image quality pipeline: image size, face count,
// face pixel size and face-to-image area ratio, in that order.
func ValidateDetection(d Detection) QualityReport {
	if d.ImageWidth < MinImageSidePx || d.ImageHeight < MinImageSidePx {
		return QualityReport{Reason: ReasonImageTooSmall}
	}

	switch {
	case len(d.Boxes) == 0:
		return QualityReport{Reason: ReasonNoFace}
	case len(d.Boxes) > 1:
		return QualityReport{Reason: ReasonMultipleFaces}
	}

	box := d.Boxes[0]
	if BBoxWidth(box) < MinFaceSidePx || BBoxHeight(box) < MinFaceSidePx {
		return QualityReport{Reason: ReasonFaceTooSmall}
	}

	imageArea := float64(d.ImageWidth) * float64(d.ImageHeight)
	ok, reason := ValidateEncodingQuality(len(d.Boxes), BBoxArea(box), imageArea)
	return QualityReport{OK: ok, Reason: reason}
}
