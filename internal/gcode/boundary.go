package gcode

// LayerDetector decides where one print phase (group) ends and the next
// begins. Implementations are the single place layer-change heuristics
// live; the builder only relays observations.
type LayerDetector interface {
	// OnMove observes the end Z of an emitted motion event and reports
	// whether a new group opens with that event.
	OnMove(z float64) bool
	// OnAnnotation observes a comment directive and reports whether a new
	// group opens after it.
	OnAnnotation(ann *Annotation) bool
}

// ZIncreaseDetector opens a new group whenever an event's Z rises beyond
// epsilon above the last boundary's Z. The first observed move anchors the
// reference without signaling, so the opening group is never split off
// empty. Z decreases never signal; layer changes only ever move up.
type ZIncreaseDetector struct {
	eps      float64
	anchored bool
	anchorZ  float64
}

// NewZIncreaseDetector returns a detector with the given tolerance.
// A non-positive epsilon disables the noise guard entirely.
func NewZIncreaseDetector(eps float64) *ZIncreaseDetector {
	return &ZIncreaseDetector{eps: eps}
}

func (d *ZIncreaseDetector) OnMove(z float64) bool {
	if !d.anchored {
		d.anchored = true
		d.anchorZ = z
		return false
	}
	if z > d.anchorZ+d.eps {
		d.anchorZ = z
		return true
	}
	return false
}

func (d *ZIncreaseDetector) OnAnnotation(*Annotation) bool { return false }

// MarkerDetector opens groups from explicit ";LAYER:<n>" directives. When a
// stream carries no layer markers at all, it falls back to inferring
// boundaries from increasing ";Z:<z>" hints, mirroring slicers that emit
// only height comments.
type MarkerDetector struct {
	eps        float64
	sawMarker  bool
	haveMarker bool
	lastMarker int
	haveHint   bool
	lastHintZ  float64
}

// NewMarkerDetector returns a detector using eps as the hint-increase
// tolerance for markerless streams.
func NewMarkerDetector(eps float64) *MarkerDetector {
	return &MarkerDetector{eps: eps}
}

func (d *MarkerDetector) OnMove(float64) bool { return false }

func (d *MarkerDetector) OnAnnotation(ann *Annotation) bool {
	if ann == nil {
		return false
	}
	switch ann.Kind {
	case AnnotationLayerMarker:
		d.sawMarker = true
		if !d.haveMarker {
			d.haveMarker = true
			d.lastMarker = ann.Layer
			return false
		}
		if ann.Layer != d.lastMarker {
			d.lastMarker = ann.Layer
			return true
		}
		return false
	case AnnotationZHint:
		if d.sawMarker {
			return false
		}
		rose := d.haveHint && ann.Z > d.lastHintZ+d.eps
		// The hint always re-anchors, dips included, so a transient drop
		// does not suppress the next rise.
		d.haveHint = true
		d.lastHintZ = ann.Z
		return rose
	}
	return false
}
