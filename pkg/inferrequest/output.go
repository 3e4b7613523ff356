package inferrequest

// RequestedOutput is one output the caller wants back. A classification
// count of 0 returns the raw tensor, N > 0 returns the top N classes.
type RequestedOutput struct {
	name                string
	classificationCount uint32
}

func newRequestedOutput(name string, classificationCount uint32) *RequestedOutput {
	return &RequestedOutput{name: name, classificationCount: classificationCount}
}

func (o *RequestedOutput) Name() string {
	return o.name
}

func (o *RequestedOutput) ClassificationCount() uint32 {
	return o.classificationCount
}

func (o *RequestedOutput) SetClassificationCount(c uint32) {
	o.classificationCount = c
}
