package provider

// HistoryOptions are the paging parameters of a history fetch. The entity
// model forwards them to the provider untouched.
type HistoryOptions struct {
	// PageSize is the maximum number of events per page. 0 means the
	// provider's default.
	PageSize int

	// PageToken resumes a paged fetch where a previous page left off.
	PageToken string

	// ReverseOrder returns events newest first instead of oldest first.
	ReverseOrder bool

	// NextPageToken, when non-nil, receives the token for the page after the
	// returned one. Providers set it to the empty string on the last page.
	NextPageToken *string
}

type HistoryOption func(*HistoryOptions)

func WithPageSize(size int) HistoryOption {
	return func(o *HistoryOptions) {
		o.PageSize = size
	}
}

func WithPageToken(token string) HistoryOption {
	return func(o *HistoryOptions) {
		o.PageToken = token
	}
}

// WithNextPageToken captures the continuation token of the returned page in
// dst. An empty token means there are no further pages.
func WithNextPageToken(dst *string) HistoryOption {
	return func(o *HistoryOptions) {
		o.NextPageToken = dst
	}
}

func WithReverseOrder() HistoryOption {
	return func(o *HistoryOptions) {
		o.ReverseOrder = true
	}
}

func ApplyHistoryOptions(opts ...HistoryOption) HistoryOptions {
	var options HistoryOptions

	for _, opt := range opts {
		opt(&options)
	}

	return options
}
