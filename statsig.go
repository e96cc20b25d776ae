// Package statsig is the public entry point for the feature-flag and
// experimentation SDK core: it composes SpecStore, Evaluator, EventLogger,
// RuntimeSupervisor, and a SpecsAdapter into the facade spec.md §4.7 and §6
// describe.
//
// Grounded on cmd/specmcp/main.go's wiring order (config → logger →
// signal-aware context → client → run) and internal/emergent/client.go's
// retry/config idioms, generalized from an MCP tool server's lifecycle to
// this SDK's initialize/evaluate/shutdown lifecycle.
package statsig

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/statsig-io/go-core/internal/evaluator"
	"github.com/statsig-io/go-core/internal/eventlogger"
	"github.com/statsig-io/go-core/internal/observability"
	"github.com/statsig-io/go-core/internal/runtime"
	"github.com/statsig-io/go-core/internal/specsadapter"
	"github.com/statsig-io/go-core/internal/specstore"
	"github.com/statsig-io/go-core/internal/spectypes"
	"github.com/statsig-io/go-core/internal/statsigerr"
)

// Statsig is the process-lifetime SDK instance. Construct with New, call
// Initialize once, then CheckGate/GetFeatureGate/etc. are safe to call
// concurrently from any goroutine. The zero value is not usable.
type Statsig struct {
	sdkKey string
	opts   Options
	logger *slog.Logger

	store     *specstore.Store
	eval      *evaluator.Evaluator
	obs       *observability.Client
	sup       *runtime.Supervisor
	events    *eventlogger.Logger
	bootstrap *specsadapter.BootstrapAdapter
	adapter   specsadapter.SpecsAdapter

	initOnce sync.Once
	initErr  error
}

// New builds a Statsig instance for sdkKey. Nothing is started until
// Initialize is called.
func New(sdkKey string, opts ...Option) *Statsig {
	o := newOptions(opts...)
	var logWriter io.Writer = os.Stderr
	if o.DisableAllLogging {
		logWriter = io.Discard
	}
	logger := slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: slog.LevelInfo}))

	obs := o.observabilityClient()
	store := specstore.New()
	sup := runtime.New(logger)

	eventsClient := o.EventsClient
	if eventsClient == nil {
		eventsClient = newHTTPEventsClient(o.LogEventURL, sdkKey, o.SDKVersion)
	}
	events := eventlogger.New(eventsClient, eventlogger.Options{
		MaxQueueSize:  o.EventLoggingMaxQueueSize,
		FlushInterval: o.EventLoggingFlushInterval,
		Observability: obs,
		Logger:        logger,
	})

	adapter := o.SpecsAdapter
	if adapter == nil && !o.DisableNetwork {
		adapter = specsadapter.NewHTTPPollAdapter(specsadapter.HTTPPollOptions{
			SpecsURL:      o.SpecsURL,
			SDKKey:        sdkKey,
			SyncInterval:  o.SpecsSyncInterval,
			Observability: obs,
			SDKVersion:    o.SDKVersion,
		})
	}

	var bootstrap *specsadapter.BootstrapAdapter
	if len(o.BootstrapValues) > 0 {
		bootstrap = specsadapter.NewBootstrapAdapter(o.BootstrapValues)
	}

	return &Statsig{
		sdkKey:    sdkKey,
		opts:      o,
		logger:    logger,
		store:     store,
		eval:      evaluator.New(store),
		obs:       obs,
		sup:       sup,
		events:    events,
		bootstrap: bootstrap,
		adapter:   adapter,
	}
}

// Initialize constructs and starts the configured adapter(s): bootstrap
// first if configured, then the primary network/override adapter, then
// schedules background sync and starts the event logger. Bounded by
// InitTimeout.
func (s *Statsig) Initialize(ctx context.Context) error {
	s.initOnce.Do(func() {
		s.initErr = s.initialize(ctx)
	})
	return s.initErr
}

func (s *Statsig) initialize(ctx context.Context) error {
	initCtx, cancel := context.WithTimeout(ctx, s.opts.InitTimeout)
	defer cancel()

	if s.bootstrap != nil {
		if err := s.bootstrap.Start(initCtx, s.store); err != nil {
			return statsigerr.New(statsigerr.CodeParseError, err)
		}
	}

	if s.adapter != nil {
		if err := s.adapter.Start(initCtx, s.store); err != nil {
			return statsigerr.New(statsigerr.CodeNetworkError, err)
		}
		if err := s.adapter.ScheduleBackgroundSync(context.Background(), s.sup); err != nil {
			return statsigerr.New(statsigerr.CodeUnstartedAdapter, err)
		}
	} else if s.bootstrap == nil {
		return statsigerr.Newf(statsigerr.CodeSpecsListenerNotSet, "no specs source configured: set BootstrapValues, a SpecsAdapter, or disable DisableNetwork")
	}

	if !s.opts.DisableAllLogging {
		s.events.Start(s.sup)
	}

	return nil
}

func (s *Statsig) nowMs() int64 { return time.Now().UnixMilli() }

// CheckGate evaluates a feature gate and returns only its boolean value,
// logging an exposure as a side effect.
func (s *Statsig) CheckGate(user *User, name string) bool {
	return s.GetFeatureGate(user, name).Value
}

// GetFeatureGate evaluates a feature gate and logs an exposure.
func (s *Statsig) GetFeatureGate(user *User, name string) FeatureGate {
	result := s.eval.CheckGate(user, name, s.nowMs())
	s.logExposure("statsig::gate_exposure", name, user, result)
	return FeatureGate{
		Name:    name,
		Value:   result.BoolValue,
		RuleID:  result.RuleID,
		IDType:  result.IDType,
		Details: toDetails(result),
	}
}

// GetDynamicConfig evaluates a dynamic config and logs an exposure.
func (s *Statsig) GetDynamicConfig(user *User, name string) DynamicConfig {
	result := s.eval.GetDynamicConfig(user, name, s.nowMs())
	s.logExposure("statsig::config_exposure", name, user, result)
	return DynamicConfig{
		Name:      name,
		Value:     result.JSONValue,
		RuleID:    result.RuleID,
		GroupName: result.GroupName,
		IDType:    result.IDType,
		Details:   toDetails(result),
	}
}

// GetExperiment evaluates an experiment (a dynamic config whose spec is
// entity "experiment") and logs an exposure.
func (s *Statsig) GetExperiment(user *User, name string) Experiment {
	result := s.eval.GetDynamicConfig(user, name, s.nowMs())
	s.logExposure("statsig::config_exposure", name, user, result)
	return Experiment{
		Name:              name,
		Value:             result.JSONValue,
		RuleID:            result.RuleID,
		GroupName:         result.GroupName,
		IDType:            result.IDType,
		IsExperimentGroup: result.IsExperimentGroup,
		Details:           toDetails(result),
	}
}

// GetLayer evaluates a layer (following any config_delegate) and logs an
// exposure, matching the delegated value's rule id.
func (s *Statsig) GetLayer(user *User, name string) Layer {
	result := s.eval.GetLayer(user, name, s.nowMs())
	s.logExposure("statsig::layer_exposure", name, user, result)
	return Layer{
		Name:                name,
		Value:               result.JSONValue,
		RuleID:              result.RuleID,
		GroupName:           result.GroupName,
		IDType:              result.IDType,
		AllocatedExperiment: result.ConfigDelegate,
		Details:             toDetails(result),
	}
}

// GetClientInitializeResponse evaluates every visible spec for user and
// bundles the results the way a client SDK bootstrap would.
func (s *Statsig) GetClientInitializeResponse(user *User) *evaluator.ClientInitializeResponse {
	return s.eval.GetClientInitializeResponse(user, s.nowMs())
}

// LogEvent records a custom event.
func (s *Statsig) LogEvent(user *User, event StatsigEvent) {
	if s.opts.DisableAllLogging {
		return
	}
	event.User = user
	if event.Time == 0 {
		event.Time = s.nowMs()
	}
	s.events.Enqueue(event, eventlogger.UserHash(user))
}

// LogEventWithNumber records a custom numeric event, the facade's
// shorthand for the common "log a named metric" case.
func (s *Statsig) LogEventWithNumber(user *User, name string, value *float64, metadata map[string]any) {
	var v any
	if value != nil {
		v = *value
	}
	s.LogEvent(user, StatsigEvent{EventName: name, Value: v, Metadata: metadata})
}

func (s *Statsig) logExposure(eventName, specName string, user *User, result spectypes.EvaluationResult) {
	if s.opts.DisableAllLogging {
		return
	}
	s.events.Enqueue(StatsigEvent{
		EventName: eventName,
		User:      user,
		Time:      s.nowMs(),
		Metadata: map[string]any{
			"gate":   specName,
			"config": specName,
			"ruleID": result.RuleID,
			"value":  boolToStr(result.BoolValue),
			"reason": string(result.Reason),
		},
		SecondaryExposures: result.SecondaryExposures,
	}, eventlogger.UserHash(user))
}

func boolToStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ShutdownWithTimeout stops the specs adapter(s), flushes and stops the
// event logger, and shuts down the runtime supervisor, each bounded by an
// apportioned fraction of d, per spec.md §4.7.
func (s *Statsig) ShutdownWithTimeout(ctx context.Context, d time.Duration) error {
	share := d / 3
	if share <= 0 {
		share = d
	}

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if s.adapter != nil {
		record(s.adapter.Shutdown(ctx, share))
	}
	if s.bootstrap != nil {
		record(s.bootstrap.Shutdown(ctx, share))
	}
	record(s.events.Shutdown(ctx, share))

	if err := s.sup.ShutdownAndAwait(share); err != nil {
		record(statsigerr.New(statsigerr.CodeShutdownTimeout, err))
	}

	if firstErr != nil {
		return statsigerr.New(statsigerr.CodeShutdownTimeout, firstErr)
	}
	return nil
}

// GetNumActiveTasks reports the supervisor's current task count, for the
// shutdown-completeness property in spec.md §8.
func (s *Statsig) GetNumActiveTasks() int {
	n := s.sup.GetNumActiveTasks()
	s.obs.SetActiveTasks(n)
	return n
}
