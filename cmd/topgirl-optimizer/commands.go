package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/iwvelando/topgirl-optimizer/internal/backend"
	"github.com/iwvelando/topgirl-optimizer/internal/building"
	"github.com/iwvelando/topgirl-optimizer/internal/config"
	"github.com/iwvelando/topgirl-optimizer/internal/dashboard"
	"github.com/iwvelando/topgirl-optimizer/internal/registry"
	"github.com/iwvelando/topgirl-optimizer/internal/server"
	"github.com/iwvelando/topgirl-optimizer/internal/session"
	"github.com/iwvelando/topgirl-optimizer/pkg/constants"
	"github.com/iwvelando/topgirl-optimizer/pkg/magnitude"
	"github.com/iwvelando/topgirl-optimizer/pkg/optimization"
	"github.com/iwvelando/topgirl-optimizer/pkg/output"
	"go.uber.org/zap"
)

// app wires the core packages for one command invocation.
type app struct {
	conf      *config.Configuration
	logger    *zap.Logger
	registry  *registry.Registry
	dashboard *dashboard.Dashboard
	closers   []io.Closer

	query     string
	assumeYes bool
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
}

func newApp(conf *config.Configuration, logger *zap.Logger) (*app, error) {
	client := backend.NewClient(conf.API.BaseURL, conf.API.Timeout, logger)

	a := &app{
		conf:     conf,
		logger:   logger,
		registry: registry.New(client, logger),
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}

	kv, err := a.sessionKV()
	if err != nil {
		return nil, err
	}
	store := session.NewStore(kv, conf.Session.Key, logger)
	a.dashboard = dashboard.New(client, store, logger)
	return a, nil
}

func (a *app) sessionKV() (session.KV, error) {
	switch a.conf.Session.Backend {
	case constants.SessionBackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		kv, err := session.NewRedisKV(ctx, a.conf.Session.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, kv)
		return kv, nil
	case constants.SessionBackendMemory:
		return session.NewMemoryKV(), nil
	default:
		path := a.conf.Session.Path
		if path == "" {
			var err error
			if path, err = session.DefaultFilePath(constants.DefaultSessionFileName); err != nil {
				return nil, err
			}
		}
		a.logger.Debug("using session file",
			zap.String("op", "main.sessionKV"),
			zap.String("path", path),
		)
		return session.NewFileKV(path), nil
	}
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
}

func (a *app) run(command string, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "list":
		return a.list(ctx)
	case "create":
		return a.create(ctx, args)
	case "update":
		return a.update(ctx, args)
	case "delete":
		return a.delete(ctx, args)
	case "levelup":
		return a.levelUp(ctx, args)
	case "params":
		return a.params(ctx)
	case "optimize":
		return a.optimize(ctx, args)
	case "serve":
		return a.serve(ctx)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) list(ctx context.Context) error {
	if err := a.registry.Refresh(ctx); err != nil {
		a.logger.Warn("failed to fetch buildings, showing an empty list",
			zap.String("op", "main.list"),
			zap.Error(err),
		)
		_, _ = fmt.Fprintf(a.stderr, "Warning: building list may be out of date: %v\n", err)
	}
	buildings := a.registry.List(a.query)
	if len(buildings) == 0 && a.query != "" {
		if suggestions := a.registry.Suggest(a.query); len(suggestions) > 0 {
			_, _ = fmt.Fprintf(a.stderr, "No buildings match %q. Did you mean: %s?\n", a.query, strings.Join(suggestions, ", "))
		}
	}
	return a.write(output.Report{Buildings: buildings})
}

func (a *app) create(ctx context.Context, args []string) error {
	values, err := parseFields(args)
	if err != nil {
		return err
	}
	form, err := building.DefaultForm().With(values)
	if err != nil {
		return err
	}
	if strings.TrimSpace(form.Name) == "" {
		return errors.New("building name is required, e.g. name=Cafe")
	}
	a.logUnits(values)

	if err := a.registry.Create(ctx, form); err != nil {
		return err
	}
	return a.write(output.Report{Buildings: a.registry.List(a.query)})
}

func (a *app) update(ctx context.Context, args []string) error {
	id, rest, err := buildingArg(args)
	if err != nil {
		return err
	}
	values, err := parseFields(rest)
	if err != nil {
		return err
	}
	if err := a.registry.Refresh(ctx); err != nil {
		return err
	}

	form, err := a.registry.Form(id)
	if err != nil {
		return err
	}
	if form, err = form.With(values); err != nil {
		return err
	}
	a.logUnits(values)

	changed, err := a.registry.Update(ctx, id, form)
	if err != nil {
		return err
	}
	if !changed {
		a.logger.Info("nothing to update",
			zap.String("op", "main.update"),
			zap.Int("buildingId", id),
		)
	}
	return a.write(output.Report{Buildings: a.registry.List(a.query)})
}

func (a *app) delete(ctx context.Context, args []string) error {
	id, rest, err := buildingArg(args)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("unexpected arguments %v", rest)
	}
	if err := a.registry.Refresh(ctx); err != nil {
		return err
	}

	var confirm registry.Confirmer = promptConfirmer{in: a.stdin, out: a.stderr}
	if a.assumeYes {
		confirm = registry.ConfirmFunc(func(building.Building) bool { return true })
	}
	err = a.registry.Delete(ctx, id, confirm)
	if errors.Is(err, registry.ErrNotConfirmed) {
		a.logger.Info("delete cancelled",
			zap.String("op", "main.delete"),
			zap.Int("buildingId", id),
		)
		return nil
	}
	if err != nil {
		return err
	}
	return a.write(output.Report{Buildings: a.registry.List(a.query)})
}

func (a *app) levelUp(ctx context.Context, args []string) error {
	id, rest, err := buildingArg(args)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("unexpected arguments %v", rest)
	}
	if err := a.registry.Refresh(ctx); err != nil {
		return err
	}
	if _, err := a.registry.LevelUp(ctx, id); err != nil {
		return err
	}
	return a.write(output.Report{Buildings: a.registry.List(a.query)})
}

func (a *app) params(ctx context.Context) error {
	req, source := a.dashboard.LoadParams(ctx)
	a.logger.Info("loaded optimization parameters",
		zap.String("op", "main.params"),
		zap.String("source", source),
	)
	return a.write(output.Report{Request: &req})
}

func (a *app) optimize(ctx context.Context, args []string) error {
	values, err := parseFields(args)
	if err != nil {
		return err
	}
	base, source := a.dashboard.LoadParams(ctx)
	req, err := applyParams(base, values)
	if err != nil {
		return err
	}
	a.logUnits(values)
	a.logger.Debug("running optimization",
		zap.String("op", "main.optimize"),
		zap.String("baseSource", source),
	)

	result, err := a.dashboard.Run(ctx, req)
	if err != nil {
		return err
	}
	return a.write(output.Report{Request: &req, Result: &result})
}

func (a *app) serve(ctx context.Context) error {
	maxBodySize, err := a.conf.Server.MaxBodySizeBytes()
	if err != nil {
		return err
	}

	if err := a.registry.Refresh(ctx); err != nil {
		a.logger.Warn("starting with an empty building list",
			zap.String("op", "main.serve"),
			zap.Error(err),
		)
	}

	srv := &http.Server{
		Addr: a.conf.Server.Address,
		Handler: server.NewHandler(server.Options{
			Registry:    a.registry,
			Dashboard:   a.dashboard,
			Logger:      a.logger,
			MaxBodySize: maxBodySize,
			Version:     version,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("panel listening",
			zap.String("op", "main.serve"),
			zap.String("address", srv.Addr),
			zap.String("backend", a.conf.API.BaseURL),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutting down panel",
			zap.String("op", "main.serve"),
		)
		return srv.Shutdown(shutdownCtx)
	}
}

// write renders report to the configured output file, or stdout.
func (a *app) write(report output.Report) error {
	if a.conf.Output.File == "" {
		return output.Write(a.stdout, a.conf.Output.Format, report)
	}

	f, err := os.Create(a.conf.Output.File)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := output.Write(f, a.conf.Output.Format, report); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	a.logger.Info("wrote output",
		zap.String("op", "main.write"),
		zap.String("file", a.conf.Output.File),
		zap.String("format", a.conf.Output.Format),
	)
	return nil
}

// logUnits reports how quantities typed with a unit letter were read, so a
// stray letter such as "2.5mil" is visible.
func (a *app) logUnits(values map[string]string) {
	for field, value := range values {
		if field == building.FieldName || !magnitude.HasUnit(value) {
			continue
		}
		a.logger.Info("interpreted quantity",
			zap.String("op", "main.logUnits"),
			zap.String("field", field),
			zap.String("input", value),
			zap.Float64("value", magnitude.Normalize(value)),
		)
	}
}

// parseFields reads field=value arguments.
func parseFields(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		if _, dup := values[field]; dup {
			return nil, fmt.Errorf("field %s given more than once", field)
		}
		values[field] = value
	}
	return values, nil
}

func buildingArg(args []string) (int, []string, error) {
	if len(args) == 0 {
		return 0, nil, errors.New("missing building id")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, nil, fmt.Errorf("invalid building id %q", args[0])
	}
	return id, args[1:], nil
}

// applyParams overrides base with user-typed optimization parameters.
func applyParams(base optimization.Request, values map[string]string) (optimization.Request, error) {
	for field := range values {
		switch field {
		case "money", "gold", "trade_x", "trade_y", "session_seconds":
		default:
			return base, fmt.Errorf("unknown optimization field %s; expected money, gold, trade_x, trade_y or session_seconds", field)
		}
	}

	req := optimization.Params{
		Money:  values["money"],
		Gold:   values["gold"],
		TradeX: values["trade_x"],
		TradeY: values["trade_y"],
	}.Apply(base)

	if raw, ok := values["session_seconds"]; ok {
		seconds, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return base, fmt.Errorf("session_seconds must be a whole number, got %q", raw)
		}
		req.SessionSeconds = seconds
	}
	return req, nil
}

// promptConfirmer asks on the terminal before a delete.
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (p promptConfirmer) ConfirmDelete(b building.Building) bool {
	_, _ = fmt.Fprintf(p.out, "Delete building %d (%s)? [y/N] ", b.ID, b.Name)
	answer, err := bufio.NewReader(p.in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func joinFields() string {
	return strings.Join(building.Fields(), ", ")
}
