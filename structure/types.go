package structure

// Label names a structural section
type Label string

const (
	LabelIntro        Label = "intro"
	LabelVerse        Label = "verse"
	LabelChorus       Label = "chorus"
	LabelBridge       Label = "bridge"
	LabelInstrumental Label = "instrumental"
	LabelOutro        Label = "outro"
)

// Segment is one labelled section; times are in seconds
type Segment struct {
	Label      Label   `json:"label"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Duration returns End - Start
func (s Segment) Duration() float64 {
	return s.End - s.Start
}

// Transition is the boundary between two consecutive segments
type Transition struct {
	Time     float64 `json:"time"`
	From     Label   `json:"from"`
	To       Label   `json:"to"`
	Strength float64 `json:"strength"`
}
