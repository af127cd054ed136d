// Package models - Output class tables for the detection models we run.
package models

import (
	"fmt"
	"sync"
)

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int
	// The human-readable label.
	Name string
}

// OutputClassSet is the ordered label list of one model family.
type OutputClassSet struct {
	// Family names the label convention, e.g. "yolo".
	Family string
	// Classes that are supported and mappable.
	Classes []OutputClass

	once      sync.Once
	nameToIdx map[string]int
}

// buildNameIndexMap builds the name->index map on first use.
func (s *OutputClassSet) buildNameIndexMap() {
	s.once.Do(func() {
		s.nameToIdx = make(map[string]int, len(s.Classes))
		for _, c := range s.Classes {
			s.nameToIdx[c.Name] = c.Index
		}
	})
}

// Len returns the number of classes in the set.
func (s *OutputClassSet) Len() int {
	return len(s.Classes)
}

// Name returns the label for a class index.
func (s *OutputClassSet) Name(idx int) (string, error) {
	if idx < 0 || idx >= len(s.Classes) {
		return "", fmt.Errorf("index %d out of range for %q classes", idx, s.Family)
	}
	return s.Classes[idx].Name, nil
}

// NameOrUnknown returns the label for a class index, or "unknown_<idx>".
func (s *OutputClassSet) NameOrUnknown(idx int) string {
	name, err := s.Name(idx)
	if err != nil {
		return fmt.Sprintf("unknown_%d", idx)
	}
	return name
}

// Index returns the class index for a label.
func (s *OutputClassSet) Index(name string) (int, error) {
	s.buildNameIndexMap()
	idx, ok := s.nameToIdx[name]
	if !ok {
		return -1, fmt.Errorf("name %q not found in %q classes", name, s.Family)
	}
	return idx, nil
}

// Indices resolves several labels at once.
//
// Arguments:
//   - names: The labels to resolve.
//
// Returns:
//   - []int: The class indices, in the order of names.
//   - error: An error naming the first unknown label.
func (s *OutputClassSet) Indices(names ...string) ([]int, error) {
	out := make([]int, 0, len(names))
	for _, name := range names {
		idx, err := s.Index(name)
		if err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, nil
}

// VehicleClasses are the labels counted as parked vehicles.
var VehicleClasses = []string{"car", "motorcycle", "truck"}

// YOLOClasses is the 80 COCO classes in the zero-based order used by
// Ultralytics YOLO exports (no background class).
var YOLOClasses = &OutputClassSet{
	Family: "yolo",
	Classes: []OutputClass{
		{0, "person"},
		{1, "bicycle"},
		{2, "car"},
		{3, "motorcycle"},
		{4, "airplane"},
		{5, "bus"},
		{6, "train"},
		{7, "truck"},
		{8, "boat"},
		{9, "traffic light"},
		{10, "fire hydrant"},
		{11, "stop sign"},
		{12, "parking meter"},
		{13, "bench"},
		{14, "bird"},
		{15, "cat"},
		{16, "dog"},
		{17, "horse"},
		{18, "sheep"},
		{19, "cow"},
		{20, "elephant"},
		{21, "bear"},
		{22, "zebra"},
		{23, "giraffe"},
		{24, "backpack"},
		{25, "umbrella"},
		{26, "handbag"},
		{27, "tie"},
		{28, "suitcase"},
		{29, "frisbee"},
		{30, "skis"},
		{31, "snowboard"},
		{32, "sports ball"},
		{33, "kite"},
		{34, "baseball bat"},
		{35, "baseball glove"},
		{36, "skateboard"},
		{37, "surfboard"},
		{38, "tennis racket"},
		{39, "bottle"},
		{40, "wine glass"},
		{41, "cup"},
		{42, "fork"},
		{43, "knife"},
		{44, "spoon"},
		{45, "bowl"},
		{46, "banana"},
		{47, "apple"},
		{48, "sandwich"},
		{49, "orange"},
		{50, "broccoli"},
		{51, "carrot"},
		{52, "hot dog"},
		{53, "pizza"},
		{54, "donut"},
		{55, "cake"},
		{56, "chair"},
		{57, "couch"},
		{58, "potted plant"},
		{59, "bed"},
		{60, "dining table"},
		{61, "toilet"},
		{62, "tv"},
		{63, "laptop"},
		{64, "mouse"},
		{65, "remote"},
		{66, "keyboard"},
		{67, "cell phone"},
		{68, "microwave"},
		{69, "oven"},
		{70, "toaster"},
		{71, "sink"},
		{72, "refrigerator"},
		{73, "book"},
		{74, "clock"},
		{75, "vase"},
		{76, "scissors"},
		{77, "teddy bear"},
		{78, "hair drier"},
		{79, "toothbrush"},
	},
}
