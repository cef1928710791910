package facematch

// BBoxWidth returns the width of a [x1, y1, x2, y2] box, or 0 for invalid boxes.
func BBoxWidth(bbox []float64) float64 {
	if len(bbox) != 4 {
		return 0
	}
	return max(0, bbox[2]-bbox[0])
}

// BBoxHeight returns the height of a [x1, y1, x2, y2] box, or 0 for invalid boxes.
func BBoxHeight(bbox []float64) float64 {
	if len(bbox) != 4 {
		return 0
	}
	return max(0, bbox[3]-bbox[1])
}

// BBoxArea returns the area of a [x1, y1, x2, y2] box in the box's units.
func BBoxArea(bbox []float64) float64 {
	return BBoxWidth(bbox) * BBoxHeight(bbox)
}

// ConvertPixelBBoxToRelative converts pixel bbox to relative (0-1) coordinates.
// Input bbox is [x1, y1, x2, y2] in pixels, output is [x1, y1, x2, y2] in relative coords.
func ConvertPixelBBoxToRelative(bbox []float64, width, height int) []float64 {
	if len(bbox) != 4 || width <= 0 || height <= 0 {
		return bbox
	}
	return []float64{
		bbox[0] / float64(width),
		bbox[1] / float64(height),
		bbox[2] / float64(width),
		bbox[3] / float64(height),
	}
}
