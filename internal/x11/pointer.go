package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"dockpeek/internal/platform"
)

// PointerPosition samples the pointer in root coordinates.
func (c *Connection) PointerPosition() (platform.Point, error) {
	reply, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return platform.Point{}, fmt.Errorf("failed to query pointer: %w", err)
	}
	return platform.Point{X: int(reply.RootX), Y: int(reply.RootY)}, nil
}
