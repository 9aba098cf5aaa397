// Package citui provides a terminal dashboard for continuous integration
// status across many repositories, branches and workflows.
//
// A [Dashboard] polls its sources on a fixed tick, one source per tick, so a
// large matrix of sources never bursts requests at a provider. Each
// successful poll updates the source's status and feeds its completed runs
// into a small cross-source history of the most recent runs. The terminal UI
// lists every source, colour-coded by status, next to the recent runs.
//
// # Quick Start
//
//	src, _ := citui.NewSource(citui.KindCircleCI, "acme/api",
//	    citui.WithWorkflow("build"),
//	    citui.WithBranch("main"),
//	    citui.WithToken(os.Getenv("CIRCLE_TOKEN")),
//	)
//	dash, _ := citui.New(citui.WithSource(src))
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	dash.Run(ctx) // blocks until the user quits or ctx is cancelled
//
// # Sources
//
// A [Source] is identified by its provider kind, name, branch and workflow
// ([Source.Key]). Four provider kinds are supported:
//
//   - [KindCircleCI]: workflow runs from the CircleCI insights API
//   - [KindGitHub]: GitHub Actions workflow runs
//   - [KindCCTray]: a project in a cc.xml feed (Jenkins, GoCD, TeamCity...)
//   - [KindJSON]: any JSON document, read with [JSONFields] paths
//
// [NewSourceMatrix] builds the cartesian product of repos, branches and
// workflows. Sources sharing a name are shown with their workflow and
// branch; see [Label].
//
// # Scheduling
//
// Every source has a countdown in ticks. On each tick the first source whose
// countdown reached zero is polled; the others count down by one. A
// successful poll resets the countdown to the source's refresh interval
// ([WithRefresh]) converted to ticks; a failed poll leaves it at zero, so the
// source is retried on a later tick and keeps its previous status. Pressing
// "r" in the UI makes every source due again.
//
// # Status Mapping
//
// Providers map their own run states to [Status] values. A custom
// [StatusMapper] replaces that mapping for a source:
//
//   - [StatusMap]: table lookup with a fallback
//   - [RegexStatusMapper]: first capture group compared to a success value
//   - [FirstMatch]: the first mapper with a non-unknown answer wins
//
// # Callbacks
//
// [WithStatusCallback] registers functions called after every poll with a
// [StatusResult]. Callbacks must not block; panics are recovered and logged.
//
// # HTTP API
//
// [WithListenAddr] exposes the dashboard read-only:
//
//   - GET /api/status: every source and the recent runs as JSON
//   - GET /api/sse: Server-Sent Events stream of per-source updates
//
// Together with [WithHeadless] this runs citui as a small status service
// without a terminal.
package citui
