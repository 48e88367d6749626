package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ OptionStore     = (*MemoryOptionStore)(nil)
	_ EphemeralStore  = (*MemoryEphemeralStore)(nil)
	_ LogStore        = (*MemoryLogStore)(nil)
	_ MetricsRecorder = NopMetricsRecorder{}
	_ TokenReader     = (*TokenStore)(nil)
	_ TokenRefresher  = (*OAuthFlow)(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
