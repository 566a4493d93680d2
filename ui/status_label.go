package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// StatusKind selects how a status message is highlighted
type StatusKind int

const (
	StatusNeutral StatusKind = iota
	StatusSuccess
	StatusError
)

var (
	successBg = color.NRGBA{R: 0x2e, G: 0x7d, B: 0x32, A: 0xff}
	errorBg   = color.NRGBA{R: 0xc6, G: 0x28, B: 0x28, A: 0xff}
)

func (k StatusKind) colors() (bg, fg color.Color) {
	switch k {
	case StatusSuccess:
		return successBg, color.White
	case StatusError:
		return errorBg, color.White
	default:
		return color.Transparent, theme.ForegroundColor()
	}
}

// StatusLabel shows the outcome of the last operation on a colored band
type StatusLabel struct {
	widget.BaseWidget
	text string
	kind StatusKind

	textObj *canvas.Text
	bgRect  *canvas.Rectangle
}

// NewStatusLabel creates an empty neutral status label
func NewStatusLabel() *StatusLabel {
	sl := &StatusLabel{}
	sl.ExtendBaseWidget(sl)
	return sl
}

// SetStatus replaces the message and its highlight
func (sl *StatusLabel) SetStatus(text string, kind StatusKind) {
	sl.text = text
	sl.kind = kind
	sl.Refresh()
}

// Text returns the message currently shown
func (sl *StatusLabel) Text() string {
	return sl.text
}

// Kind returns the highlight currently shown
func (sl *StatusLabel) Kind() StatusKind {
	return sl.kind
}

// CreateRenderer implements fyne.Widget
func (sl *StatusLabel) CreateRenderer() fyne.WidgetRenderer {
	bg, fg := sl.kind.colors()
	sl.bgRect = canvas.NewRectangle(bg)
	sl.textObj = canvas.NewText(sl.text, fg)
	sl.textObj.TextStyle = fyne.TextStyle{Bold: true}

	return &statusLabelRenderer{
		label:     sl,
		container: container.NewStack(sl.bgRect, container.NewPadded(sl.textObj)),
	}
}

type statusLabelRenderer struct {
	label     *StatusLabel
	container *fyne.Container
}

func (r *statusLabelRenderer) MinSize() fyne.Size {
	return r.container.MinSize()
}

func (r *statusLabelRenderer) Layout(size fyne.Size) {
	r.container.Resize(size)
}

func (r *statusLabelRenderer) Refresh() {
	bg, fg := r.label.kind.colors()
	r.label.textObj.Text = r.label.text
	r.label.textObj.Color = fg
	r.label.bgRect.FillColor = bg
	r.label.bgRect.Hidden = r.label.text == ""
	r.label.textObj.Refresh()
	r.label.bgRect.Refresh()
	r.container.Refresh()
}

func (r *statusLabelRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.container}
}

func (r *statusLabelRenderer) Destroy() {}
