package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ Storage         = (*MemoryStorage)(nil)
	_ UserCodec       = JSONUserCodec{}
	_ MetricsRecorder = NopMetricsRecorder{}
	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ RawConfigLoader = EnvConfigLoader{}
	_ OptionsResolver = GoOptionsResolver{}

	_ Failure = (*NetworkError)(nil)
	_ Failure = (*APIError)(nil)
	_ Failure = (*ProviderError)(nil)
	_ Failure = (*RefreshUnavailableError)(nil)
	_ Failure = (*UnknownError)(nil)

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
