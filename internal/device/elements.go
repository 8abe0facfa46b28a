package device

import (
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// Rect is an element's bounding box in screen pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Center returns the tap point at the middle of the rectangle.
func (r Rect) Center() (x, y int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Element is one UI element extracted from the uiautomator hierarchy.
type Element struct {
	Type       string `json:"type"`
	Text       string `json:"text"`
	Label      string `json:"label"`
	Rect       Rect   `json:"rect"`
	Focused    bool   `json:"focused,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

// uiNode mirrors one <node> of the uiautomator XML dump.
type uiNode struct {
	Class       string   `xml:"class,attr"`
	Text        string   `xml:"text,attr"`
	ContentDesc string   `xml:"content-desc,attr"`
	Hint        string   `xml:"hint,attr"`
	Bounds      string   `xml:"bounds,attr"`
	ResourceID  string   `xml:"resource-id,attr"`
	Clickable   string   `xml:"clickable,attr"`
	Focused     string   `xml:"focused,attr"`
	Children    []uiNode `xml:"node"`
}

type uiHierarchy struct {
	Nodes []uiNode `xml:"node"`
}

// parseBounds parses a "[x1,y1][x2,y2]" bounds attribute. Malformed input
// yields the zero Rect, which the collectors then discard.
func parseBounds(s string) Rect {
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return Rect{}
	}
	parts := strings.Split(s[1:len(s)-1], "][")
	if len(parts) != 2 {
		return Rect{}
	}
	p1 := strings.Split(parts[0], ",")
	p2 := strings.Split(parts[1], ",")
	if len(p1) != 2 || len(p2) != 2 {
		return Rect{}
	}
	x1, err1 := strconv.Atoi(strings.TrimSpace(p1[0]))
	y1, err2 := strconv.Atoi(strings.TrimSpace(p1[1]))
	x2, err3 := strconv.Atoi(strings.TrimSpace(p2[0]))
	y2, err4 := strconv.Atoi(strings.TrimSpace(p2[1]))
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// UIDump captures the current UI hierarchy XML via uiautomator. Device logs
// and service chatter around the XML are stripped.
func (d *Device) UIDump(ctx context.Context) (string, error) {
	out, err := d.adb(ctx, "exec-out", "uiautomator", "dump", "/dev/tty")
	if err != nil {
		return "", err
	}

	start := strings.Index(out, "<hierarchy")
	if start < 0 {
		return "", fmt.Errorf("no UI hierarchy in uiautomator output")
	}
	rest := out[start:]
	const endTag = "</hierarchy>"
	end := strings.LastIndex(rest, endTag)
	if end < 0 {
		return "", fmt.Errorf("truncated UI hierarchy in uiautomator output")
	}
	return rest[:end+len(endTag)], nil
}

// ClickableElements returns the clickable on-screen elements with a visible,
// on-screen bounding box.
func (d *Device) ClickableElements(ctx context.Context) ([]Element, error) {
	root, err := d.hierarchy(ctx)
	if err != nil {
		return nil, err
	}
	var elements []Element
	for _, n := range root.Nodes {
		elements = append(elements, collectClickable(n)...)
	}
	return elements, nil
}

// MeaningfulElements returns the on-screen elements carrying text or an
// accessibility label, whether or not they are clickable. This is the view
// given to the model for screen-state analysis.
func (d *Device) MeaningfulElements(ctx context.Context) ([]Element, error) {
	root, err := d.hierarchy(ctx)
	if err != nil {
		return nil, err
	}
	var elements []Element
	for _, n := range root.Nodes {
		elements = append(elements, collectMeaningful(n)...)
	}
	return elements, nil
}

func (d *Device) hierarchy(ctx context.Context) (*uiHierarchy, error) {
	dump, err := d.UIDump(ctx)
	if err != nil {
		return nil, err
	}
	var root uiHierarchy
	if err := xml.Unmarshal([]byte(dump), &root); err != nil {
		return nil, fmt.Errorf("parse UI hierarchy: %w", err)
	}
	return &root, nil
}

func nodeElement(n uiNode) Element {
	label := strings.TrimSpace(n.ContentDesc)
	if label == "" {
		label = strings.TrimSpace(n.Hint)
	}
	typ := n.Class
	if typ == "" {
		typ = "text"
	}
	return Element{
		Type:       typ,
		Text:       strings.TrimSpace(n.Text),
		Label:      label,
		Rect:       parseBounds(n.Bounds),
		Focused:    n.Focused == "true",
		Identifier: strings.TrimSpace(n.ResourceID),
	}
}

// collectClickable gathers clickable descendants depth-first, children before
// the node itself. Elements at or beyond the left/top screen edge are
// dropped; they are off-screen or zero-sized.
func collectClickable(n uiNode) []Element {
	var elements []Element
	for _, child := range n.Children {
		elements = append(elements, collectClickable(child)...)
	}
	if n.Clickable == "true" {
		e := nodeElement(n)
		if e.Rect.Width > 0 && e.Rect.Height > 0 && e.Rect.X > 0 && e.Rect.Y > 0 {
			elements = append(elements, e)
		}
	}
	return elements
}

// collectMeaningful gathers descendants that carry text or a label,
// children before the node itself.
func collectMeaningful(n uiNode) []Element {
	var elements []Element
	for _, child := range n.Children {
		elements = append(elements, collectMeaningful(child)...)
	}
	e := nodeElement(n)
	if (e.Text != "" || e.Label != "") && e.Rect.Width > 0 && e.Rect.Height > 0 {
		elements = append(elements, e)
	}
	return elements
}
