// Command webmk builds, serves and deploys a static site.
//
//	webmk [flags] [default|build|serve|clean|deploy|<goal>]
//
// Without a target, webmk cleans the site, builds it for development, serves
// it and rebuilds on changes. The build target creates the production site.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"git.fractalqb.de/fractalqb/webmk"
	"git.fractalqb.de/fractalqb/webmk/config"
	"git.fractalqb.de/fractalqb/webmk/devsrv"
	"git.fractalqb.de/fractalqb/webmk/mkcore"
	"git.fractalqb.de/fractalqb/webmk/notify"
	"git.fractalqb.de/fractalqb/webmk/site"
	"git.fractalqb.de/fractalqb/webmk/watch"
	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"
)

var (
	tracer = webmk.DefaultTracer()

	prjDir   = "."
	cfgFile  = config.DefaultFile
	dryrun   bool
	writeDot bool
	noServe  bool
	fTrace   string
)

func flags(args []string) (*flag.FlagSet, error) {
	fs := flag.NewFlagSet(filepath.Base(args[0]), flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [default|build|serve|clean|deploy|<goal>]\n", fs.Name())
		fs.PrintDefaults()
	}
	fs.StringVarP(&prjDir, "dir", "C", prjDir, "Project directory")
	fs.StringVarP(&cfgFile, "config", "c", cfgFile, "Config file, relative to the project directory")
	fs.BoolVar(&writeDot, "dot", writeDot, "Write graphviz file to stdout and exit")
	fs.BoolVarP(&dryrun, "dryrun", "n", dryrun, "Only trace what clean would remove")
	fs.BoolVar(&noServe, "no-serve", noServe, "Do not serve and watch after a development build")
	fs.StringVar(&fTrace, "trace", fTrace, "Set trace level: off, warn, info, debug")
	config.Default().Flags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	return fs, tracer.ParseLogFlag(fTrace)
}

// loadConfig loads the config file and applies the config flags that were
// set on the command line.
func loadConfig(tr *mkcore.Trace, fs *flag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(filepath.Join(prjDir, cfgFile))
	switch {
	case errors.Is(err, config.ErrConfigNotFound) && !fs.Changed("config"):
		tr.Info("no `config`, using defaults", `config`, cfgFile)
		cfg = config.Default()
	case err != nil:
		return nil, err
	}
	over := flag.NewFlagSet("config", flag.ContinueOnError)
	cfg.Flags(over)
	fs.Visit(func(f *flag.Flag) {
		if over.Lookup(f.Name) != nil {
			err = errors.Join(err, over.Set(f.Name, f.Value.String()))
		}
	})
	if err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func notifier(tr *mkcore.Trace, cfg *config.Config) notify.Notifier {
	ns := notify.Notifiers{notify.TraceNotifier{Trace: tr}}
	if s := cfg.Notify.SMTP; s != nil {
		ns = append(ns, &notify.MailNotifier{
			Addr:     s.Addr,
			From:     s.From,
			To:       s.To,
			Auth:     s.Auth,
			User:     s.User,
			Password: s.Password,
		})
	}
	return ns
}

// onChange returns the watcher callback that reloads browsers after a
// rebuild and notifies about failed rebuilds.
func onChange(
	tr *mkcore.Trace,
	ntf notify.Notifier,
	cfg *config.Config,
	reload func(msg string) int,
) func([]*mkcore.Goal, error) {
	return func(changed []*mkcore.Goal, err error) {
		if err != nil {
			if nerr := ntf.Notify(tr.Ctx(), "webmk rebuild failed", err); nerr != nil {
				tr.Warn("notify rebuild failure: `error`", `error`, nerr)
			}
			return
		}
		reload(site.ReloadKind(cfg, changed))
	}
}

func main() {
	fs, err := flags(os.Args)
	if errors.Is(err, flag.ErrHelp) {
		return
	} else if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	tr := mkcore.NewTrace(ctx, tracer)
	maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		tr.Debug(fmt.Sprintf(format, args...))
	}))

	cfg, err := loadConfig(tr, fs)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	target := "default"
	switch fs.NArg() {
	case 0:
	case 1:
		target = fs.Arg(0)
	default:
		fs.Usage()
		os.Exit(2)
	}
	if err := run(tr, cfg, target); err != nil {
		if nerr := notifier(tr, cfg).Notify(ctx, "webmk "+target+" failed", err); nerr != nil {
			fmt.Fprintln(os.Stderr, nerr)
		}
		os.Exit(1)
	}
}

func run(tr *mkcore.Trace, cfg *config.Config, target string) error {
	mode := site.Dev
	if target == "build" || target == "deploy" {
		mode = site.Prod
	}
	prj := mkcore.NewProject(prjDir)
	if abs, err := filepath.Abs(prjDir); err == nil {
		prj.Dir = abs
	}
	if err := site.Define(prj, cfg, mode); err != nil {
		return err
	}
	if writeDot {
		_, err := prj.WriteDot(os.Stdout)
		return err
	}
	switch target {
	case "clean":
		return mkcore.Clean(prj, dryrun, tr)
	case "serve":
		return serve(tr, prj, cfg)
	case "default", "build":
		if err := mkcore.Clean(prj, dryrun, tr); err != nil {
			return err
		}
	}
	bd, err := mkcore.NewBuilder(tr, nil)
	if err != nil {
		return err
	}
	goal := target
	if target == "default" || target == "build" {
		goal = mode.Goal()
	}
	tr.Info("build `goal` for `mode`", `goal`, goal, `mode`, mode.String())
	if err := bd.NamedGoals(prj, goal); err != nil {
		return err
	}
	if target == "default" && !noServe {
		return serve(tr, prj, cfg)
	}
	return nil
}

func serve(tr *mkcore.Trace, prj *mkcore.Project, cfg *config.Config) error {
	app, err := prj.AbsPath(cfg.App)
	if err != nil {
		return err
	}
	grp, ctx := errgroup.WithContext(tr.Ctx())
	tr = mkcore.NewTrace(ctx, tracer)
	srv := devsrv.New(app, tr)
	w, err := watch.New(tr, watch.Sources(prj)...)
	if err != nil {
		return err
	}
	defer w.Close()
	w.OnChange = onChange(tr, notifier(tr, cfg), cfg, srv.Reload)
	grp.Go(func() error { return w.Run(tr, nil) })
	grp.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.Serve.Addr, func(local, external string) {
			fmt.Printf("Serving %s\n  Local:    %s\n", cfg.App, local)
			if external != "" {
				fmt.Printf("  External: %s\n", external)
			}
			fmt.Printf("  Reload:   %s\n", devsrv.ReloadPath)
		})
	})
	return grp.Wait()
}
