package input

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func TestKeyEdges(t *testing.T) {
	im := NewInputManager()
	im.HandleKeyEvent(glfw.KeyF, glfw.Press)
	if !im.JustPressed(ActionToggleWireframe) || !im.IsActive(ActionToggleWireframe) {
		t.Fatalf("Expected F to press the wireframe toggle")
	}
	im.PostUpdate()
	im.HandleKeyEvent(glfw.KeyF, glfw.Repeat)
	if im.JustPressed(ActionToggleWireframe) {
		t.Errorf("repeat reported a new press")
	}
	im.HandleKeyEvent(glfw.KeyF, glfw.Release)
	if !im.JustReleased(ActionToggleWireframe) || im.IsActive(ActionToggleWireframe) {
		t.Errorf("Expected a release edge")
	}
	im.PostUpdate()
	if im.JustReleased(ActionToggleWireframe) {
		t.Errorf("PostUpdate kept the release edge")
	}
}

func TestSharedAction(t *testing.T) {
	im := NewInputManager()
	im.HandleKeyEvent(glfw.KeyUp, glfw.Press)
	if !im.IsActive(ActionPanForward) {
		t.Errorf("Expected the arrow key to pan forward")
	}
	im.HandleMouseButtonEvent(glfw.MouseButtonRight, glfw.Press)
	if !im.JustPressed(ActionPlace) {
		t.Errorf("Expected the right button to place")
	}
	im.HandleKeyEvent(glfw.KeyF12, glfw.Press)
	im.UnbindKey(glfw.KeyUp)
	im.HandleKeyEvent(glfw.KeyUp, glfw.Release)
	if !im.IsActive(ActionPanForward) {
		t.Errorf("unbound key still changed state")
	}
	if im.IsActive(ActionCount) || im.JustPressed(-1) {
		t.Errorf("out of range actions must read false")
	}
}

func TestCursorAndScroll(t *testing.T) {
	im := NewInputManager()
	im.HandleCursorPos(100, 100)
	if dx, dy := im.CursorDelta(); dx != 0 || dy != 0 {
		t.Fatalf("first cursor event moved by %v,%v", dx, dy)
	}
	im.HandleCursorPos(110, 95)
	im.HandleCursorPos(115, 90)
	im.HandleScroll(1)
	im.HandleScroll(0.5)
	if dx, dy := im.CursorDelta(); dx != 15 || dy != -10 {
		t.Errorf("cursor delta: got %v,%v, want 15,-10", dx, dy)
	}
	if im.Scroll() != 1.5 {
		t.Errorf("scroll: got %v", im.Scroll())
	}
	im.PostUpdate()
	if dx, dy := im.CursorDelta(); dx != 0 || dy != 0 || im.Scroll() != 0 {
		t.Errorf("PostUpdate kept motion")
	}
}
