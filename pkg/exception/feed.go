package exception

import "errors"

var (
	ErrFeedOpen          = errors.New("feed: cannot open tick file")
	ErrFeedMissingHeader = errors.New("feed: tick file has no header")
	ErrFeedExhausted     = errors.New("feed: no more events")
)
