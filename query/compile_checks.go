package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-auth-session/core"
)

var (
	_ gocmd.Querier[SessionStateMessage, core.SessionState]    = (*SessionStateQuery)(nil)
	_ gocmd.Querier[ProfileMessage, core.UserInfo]             = (*ProfileQuery)(nil)
	_ gocmd.Querier[CheckEmailMessage, core.EmailAvailability] = (*CheckEmailQuery)(nil)

	_ SessionStateReader      = (*core.Store)(nil)
	_ ProfileReader           = (*core.Store)(nil)
	_ EmailAvailabilityReader = (*core.Store)(nil)
)
