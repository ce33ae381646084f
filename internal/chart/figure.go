package chart

// Figure is a Plotly figure in its JSON wire form; the viewer hands it to plotly.js as is.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

type Trace struct {
	Type       string  `json:"type"`
	Mode       string  `json:"mode,omitempty"`
	Name       string  `json:"name,omitempty"`
	X          []any   `json:"x"`
	Y          []any   `json:"y"`
	StackGroup string  `json:"stackgroup,omitempty"`
	Marker     *Marker `json:"marker,omitempty"`
}

type Marker struct {
	Size     []any   `json:"size,omitempty"`
	SizeMode string  `json:"sizemode,omitempty"`
	SizeRef  float64 `json:"sizeref,omitempty"`
}

type Layout struct {
	Title   *Text  `json:"title,omitempty"`
	XAxis   Axis   `json:"xaxis"`
	YAxis   Axis   `json:"yaxis"`
	BarMode string `json:"barmode,omitempty"`
	Font    *Font  `json:"font,omitempty"`
	Height  int    `json:"height,omitempty"`
}

type Axis struct {
	Title *Text `json:"title,omitempty"`
}

type Text struct {
	Text string `json:"text"`
}

type Font struct {
	Family string `json:"family,omitempty"`
}

// SetTitle sets the figure title; an empty title leaves the layout untouched.
func (f *Figure) SetTitle(title string) {
	if title != "" {
		f.Layout.Title = &Text{Text: title}
	}
}
