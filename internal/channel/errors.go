package channel

import (
	"fmt"

	"github.com/signalsfoundry/murmurhf/internal/errs"
)

func errNotFound(channelID int) error {
	return errs.New(errs.NotFound, "channel", fmt.Errorf("channel %d not found", channelID))
}
