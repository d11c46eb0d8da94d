package main

import (
	"context"
	"embed"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"github.com/wailsapp/wails/v2/pkg/options/windows"
	wruntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/MJE43/playdeck/bindings"
	"github.com/MJE43/playdeck/internal/app"
	"github.com/MJE43/playdeck/internal/bootstrap"
	"github.com/MJE43/playdeck/internal/config"
	plog "github.com/MJE43/playdeck/internal/logger"
)

//go:embed all:frontend/dist
var assets embed.FS

const (
	appTitle = "Playdeck"
	repoURL  = "https://github.com/MJE43/playdeck"
)

var (
	appCtx   context.Context
	appCtxMu sync.RWMutex
)

func buildWindowsOptions(log *slog.Logger) *windows.Options {
	return &windows.Options{
		BackdropType: windows.Mica,
		Theme:        windows.SystemDefault,
		CustomTheme: &windows.ThemeSettings{
			DarkModeTitleBar:   windows.RGB(24, 24, 37),
			DarkModeTitleText:  windows.RGB(226, 232, 240),
			DarkModeBorder:     windows.RGB(49, 50, 68),
			LightModeTitleBar:  windows.RGB(248, 250, 252),
			LightModeTitleText: windows.RGB(15, 23, 42),
			LightModeBorder:    windows.RGB(226, 232, 240),
		},
		WebviewIsTransparent: false,
		WindowIsTranslucent:  false,
		ZoomFactor:           1.0,
		WindowClassName:      "PlaydeckWindow",
		OnSuspend: func() {
			log.Debug("entering low power mode")
		},
		OnResume: func() {
			log.Debug("resuming from low power mode")
		},
	}
}

func buildMacOptions() *mac.Options {
	icon, _ := assets.ReadFile("frontend/dist/assets/logo.png")
	return &mac.Options{
		TitleBar: mac.TitleBarDefault(),
		About: &mac.AboutInfo{
			Title:   appTitle,
			Message: "Mini-games, a counter and an endless cat gallery.\nBuilt with Wails",
			Icon:    icon,
		},
	}
}

func buildLinuxOptions() *linux.Options {
	icon, _ := assets.ReadFile("frontend/dist/assets/logo.png")
	return &linux.Options{
		Icon:             icon,
		WebviewGpuPolicy: linux.WebviewGpuPolicyOnDemand,
		ProgramName:      "playdeck",
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	log := plog.Init(cfg.LogLevel, cfg.LogJSON)
	log.Info("starting playdeck", "go", runtime.Version())

	svc, err := bootstrap.New(cfg, log)
	if err != nil {
		log.Error("init failed", "error", err)
		os.Exit(1)
	}
	deck := bindings.New(svc.Runtime, svc.Scripts, journalOrNil(svc), log)
	secretsMod := bindings.NewSecretsModule(svc.Secrets)

	startup := func(ctx context.Context) {
		setAppContext(ctx)
		if err := svc.Start(ctx); err != nil {
			log.Error("services failed to start", "error", err)
		}
		deck.Startup(ctx)
		if svc.HTTP != nil {
			log.Info("local api ready", "addr", svc.HTTP.Addr(), "token", cfg.HTTPToken != "")
		}
	}

	beforeClose := func(ctx context.Context) (prevent bool) {
		deck.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := svc.Shutdown(shutdownCtx); err != nil {
			log.Warn("shutdown", "error", err)
		}
		setAppContext(nil)
		return false
	}

	err = wails.Run(&options.App{
		Title:            appTitle,
		Width:            1024,
		Height:           768,
		MinWidth:         720,
		MinHeight:        540,
		WindowStartState: options.Normal,
		BackgroundColour: &options.RGBA{R: 24, G: 24, B: 37, A: 255},
		AssetServer: &assetserver.Options{
			Assets: assets,
		},

		OnStartup:     startup,
		OnBeforeClose: beforeClose,
		OnDomReady: func(ctx context.Context) {
			log.Debug("dom ready")
		},

		Menu: buildAppMenu(deck),
		Bind: []interface{}{deck, secretsMod},

		Logger:             plog.NewWails(log),
		LogLevel:           logger.INFO,
		LogLevelProduction: logger.ERROR,

		EnableDefaultContextMenu: false,
		ErrorFormatter: func(err error) any {
			if err == nil {
				return nil
			}
			return err.Error()
		},
		SingleInstanceLock: &options.SingleInstanceLock{
			UniqueId: "3f0c9a52-6d1e-4b7a-9c55-playdeck",
			OnSecondInstanceLaunch: func(data options.SecondInstanceData) {
				log.Info("second instance launch prevented", "args", data.Args)
				withAppContext(log, func(ctx context.Context) {
					wruntime.WindowUnminimise(ctx)
					wruntime.WindowShow(ctx)
				})
			},
		},
		DragAndDrop: &options.DragAndDrop{
			EnableFileDrop:     false,
			DisableWebViewDrop: true,
		},

		Windows: buildWindowsOptions(log),
		Mac:     buildMacOptions(),
		Linux:   buildLinuxOptions(),
	})
	if err != nil {
		log.Error("wails run failed", "error", err)
		os.Exit(1)
	}
}

func journalOrNil(svc *bootstrap.Services) bindings.Journal {
	if svc.Journal == nil {
		return nil
	}
	return svc.Journal
}

// buildAppMenu mirrors the route table so every page is a keyboard shortcut
// away.
func buildAppMenu(deck *bindings.App) *menu.Menu {
	log := plog.With("component", "menu")
	root := menu.NewMenu()
	if runtime.GOOS == "darwin" {
		if appMenu := menu.AppMenu(); appMenu != nil {
			root.Append(appMenu)
		}
	}

	fileMenu := menu.NewMenu()
	fileMenu.AddText("Open Data Directory", keys.CmdOrCtrl("o"), func(_ *menu.CallbackData) {
		withAppContext(log, func(ctx context.Context) {
			openPathInExplorer(ctx, config.AppDataDir())
		})
	})
	fileMenu.AddSeparator()
	fileMenu.AddText("Quit", keys.CmdOrCtrl("q"), func(_ *menu.CallbackData) {
		withAppContext(log, wruntime.Quit)
	})
	root.Append(menu.SubMenu("File", fileMenu))

	goMenu := menu.NewMenu()
	for i, info := range app.Routes() {
		route := info.Route
		goMenu.AddText(info.Title, keys.CmdOrCtrl(string(rune('1'+i))), func(_ *menu.CallbackData) {
			if _, err := deck.Dispatch(app.Envelope{Type: app.KindNavigate, Route: string(route)}); err != nil {
				log.Warn("navigate from menu", "route", route, "error", err)
			}
		})
	}
	root.Append(menu.SubMenu("Go", goMenu))

	viewMenu := menu.NewMenu()
	viewMenu.AddText("Reload Frontend", keys.CmdOrCtrl("r"), func(_ *menu.CallbackData) {
		withAppContext(log, wruntime.WindowReloadApp)
	})
	viewMenu.AddText("Toggle Fullscreen", keys.Combo("f", keys.CmdOrCtrlKey, keys.ShiftKey), func(_ *menu.CallbackData) {
		withAppContext(log, toggleFullscreen)
	})
	root.Append(menu.SubMenu("View", viewMenu))

	helpMenu := menu.NewMenu()
	helpMenu.AddText("Project Repository", nil, func(_ *menu.CallbackData) {
		withAppContext(log, func(ctx context.Context) {
			wruntime.BrowserOpenURL(ctx, repoURL)
		})
	})
	root.Append(menu.SubMenu("Help", helpMenu))
	return root
}

func openPathInExplorer(ctx context.Context, path string) {
	if path == "" {
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	wruntime.BrowserOpenURL(ctx, fileURI(abs))
}

func fileURI(path string) string {
	clean := filepath.ToSlash(path)
	if runtime.GOOS == "windows" && len(clean) > 0 && clean[0] != '/' {
		clean = "/" + clean
	}
	u := url.URL{Scheme: "file", Path: clean}
	return u.String()
}

func toggleFullscreen(ctx context.Context) {
	if wruntime.WindowIsFullscreen(ctx) {
		wruntime.WindowUnfullscreen(ctx)
		return
	}
	wruntime.WindowFullscreen(ctx)
}

func setAppContext(ctx context.Context) {
	appCtxMu.Lock()
	defer appCtxMu.Unlock()
	appCtx = ctx
}

func withAppContext(log *slog.Logger, action func(context.Context)) {
	appCtxMu.RLock()
	ctx := appCtx
	appCtxMu.RUnlock()
	if ctx == nil {
		log.Debug("application context not initialised; ignoring menu action")
		return
	}
	action(ctx)
}
