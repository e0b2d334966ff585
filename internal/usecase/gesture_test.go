package usecase

import (
	"testing"

	"TickerDeck/internal/domain/models"
)

func testWidget() *models.Widget {
	return &models.Widget{
		ID:       "w1",
		Kind:     models.KindChart,
		Position: models.Position{X: 100, Y: 100},
		Size:     models.Size{Width: 400, Height: 300},
	}
}

func TestParseDirection(t *testing.T) {
	for _, name := range []string{"n", "s", "e", "w", "ne", "nw", "se", "sw"} {
		d, err := ParseDirection(name)
		if err != nil {
			t.Fatalf("ParseDirection(%q): %v", name, err)
		}
		if d.String() != name {
			t.Fatalf("round trip %q got %q", name, d.String())
		}
	}
	if _, err := ParseDirection("up"); err == nil {
		t.Fatal("expected error for unknown direction")
	}
}

func TestDragFollowsPointer(t *testing.T) {
	w := testWidget()
	sess, err := BeginDrag(w, models.Position{X: 150, Y: 150})
	if err != nil {
		t.Fatalf("BeginDrag: %v", err)
	}

	r := sess.Update(models.Position{X: 180, Y: 120})
	if r.X != 130 || r.Y != 70 {
		t.Fatalf("rect = %+v", r)
	}
	if r.Width != 400 || r.Height != 300 {
		t.Fatalf("drag must not change size: %+v", r)
	}
}

func TestDragRejectsMaximized(t *testing.T) {
	w := testWidget()
	w.Maximized = true
	if _, err := BeginDrag(w, models.Position{}); err != ErrMaximized {
		t.Fatalf("err = %v", err)
	}
	if _, err := BeginResize(w, DirSE, models.Position{}, 200, 140); err != ErrMaximized {
		t.Fatalf("err = %v", err)
	}
}

func TestResizeEastSouth(t *testing.T) {
	w := testWidget()
	sess, _ := BeginResize(w, DirSE, models.Position{X: 500, Y: 400}, 200, 140)

	r := sess.Update(models.Position{X: 550, Y: 430})
	if r.Width != 450 || r.Height != 330 {
		t.Fatalf("size = %+v", r.Size)
	}
	if r.X != 100 || r.Y != 100 {
		t.Fatalf("se resize must not move origin: %+v", r.Position)
	}
}

func TestResizeWestAnchorsEastEdge(t *testing.T) {
	w := testWidget()
	sess, _ := BeginResize(w, DirW, models.Position{X: 100, Y: 200}, 200, 140)

	// pointer moves 60px right: width shrinks, x advances, right edge stays
	r := sess.Update(models.Position{X: 160, Y: 200})
	if r.Width != 340 {
		t.Fatalf("width = %v", r.Width)
	}
	if r.X != 160 {
		t.Fatalf("x = %v", r.X)
	}
	if r.X+r.Width != 500 {
		t.Fatalf("east edge moved: %v", r.X+r.Width)
	}
	if r.Height != 300 || r.Y != 100 {
		t.Fatalf("west resize touched vertical axis: %+v", r)
	}
}

func TestResizeNorthAnchorsSouthEdge(t *testing.T) {
	w := testWidget()
	sess, _ := BeginResize(w, DirN, models.Position{X: 300, Y: 100}, 200, 140)

	r := sess.Update(models.Position{X: 300, Y: 60})
	if r.Height != 340 {
		t.Fatalf("height = %v", r.Height)
	}
	if r.Y != 60 {
		t.Fatalf("y = %v", r.Y)
	}
	if r.Y+r.Height != 400 {
		t.Fatalf("south edge moved: %v", r.Y+r.Height)
	}
}

func TestResizeCornerMovesBothAxes(t *testing.T) {
	w := testWidget()
	sess, _ := BeginResize(w, DirNW, models.Position{X: 100, Y: 100}, 200, 140)

	r := sess.Update(models.Position{X: 80, Y: 130})
	if r.Width != 420 || r.X != 80 {
		t.Fatalf("horizontal = %+v", r)
	}
	if r.Height != 270 || r.Y != 130 {
		t.Fatalf("vertical = %+v", r)
	}
}

func TestResizeClampsToMinimum(t *testing.T) {
	w := testWidget()
	sess, _ := BeginResize(w, DirSE, models.Position{X: 500, Y: 400}, 200, 140)

	// drag far past the opposite edge
	r := sess.Update(models.Position{X: 0, Y: 0})
	if r.Width != 200 || r.Height != 140 {
		t.Fatalf("size = %+v", r.Size)
	}
}

func TestResizeWestClampStopsAnchorShift(t *testing.T) {
	w := testWidget()
	sess, _ := BeginResize(w, DirW, models.Position{X: 100, Y: 200}, 200, 140)

	// 300px right would leave 100px width; clamp holds 200 and the x shift
	// is limited to the width actually surrendered
	r := sess.Update(models.Position{X: 400, Y: 200})
	if r.Width != 200 {
		t.Fatalf("width = %v", r.Width)
	}
	if r.X != 300 {
		t.Fatalf("x = %v", r.X)
	}
	if r.X+r.Width != 500 {
		t.Fatalf("east edge moved: %v", r.X+r.Width)
	}
}

func TestUpdateIsRelativeToGestureStart(t *testing.T) {
	w := testWidget()
	sess, _ := BeginDrag(w, models.Position{X: 0, Y: 0})

	// intermediate updates do not accumulate; each is origin-relative
	sess.Update(models.Position{X: 500, Y: 500})
	r := sess.Update(models.Position{X: 10, Y: 10})
	if r.X != 110 || r.Y != 110 {
		t.Fatalf("rect = %+v", r)
	}
}
