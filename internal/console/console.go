// Package console drives a session from line-oriented input: each line is one user action
// on the page or map, and the visible surface is printed after every submission.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/kjstillabower/wildfire-risk-console/internal/controller"
	"github.com/kjstillabower/wildfire-risk-console/internal/lifecycle"
	"github.com/kjstillabower/wildfire-risk-console/internal/mode"
	"github.com/kjstillabower/wildfire-risk-console/internal/models"
	"github.com/kjstillabower/wildfire-risk-console/internal/request"
	"github.com/kjstillabower/wildfire-risk-console/internal/ui"
)

// HealthChecker probes the prediction service.
type HealthChecker interface {
	CheckHealth(ctx context.Context) (models.HealthStatus, error)
}

const helpText = `Commands:
  mode coords|map          choose how the location is entered
  data auto|manual         choose automatic or manual environmental data
  set <field> <value>      fill a field (latitude, longitude, temperature, humidity,
                           windSpeed, precipitation, ndvi, elevation, slope)
  click <lat> <lon>        click the map at a point
  examples                 list example locations
  example <n>              fill the coordinates from example n
  predict                  submit (an empty line right after set also submits)
  status                   show modes, fields and the selected point
  health                   probe the prediction service
  help                     show this text
  quit                     exit`

// formFields maps accepted field names to page elements. Wire names are accepted too.
var formFields = func() map[string]ui.ElementID {
	ids := []ui.ElementID{
		ui.LatitudeField, ui.LongitudeField,
		ui.TemperatureField, ui.HumidityField, ui.WindSpeedField, ui.PrecipitationField,
		ui.NDVIField, ui.ElevationField, ui.SlopeField,
	}
	m := make(map[string]ui.ElementID, 2*len(ids))
	for _, id := range ids {
		m[strings.ToLower(string(id))] = id
		if wire, ok := request.WireName(id); ok {
			m[wire] = id
		}
	}
	m["lat"] = ui.LatitudeField
	m["lon"] = ui.LongitudeField
	return m
}()

// Console reads commands and prints what the page shows.
type Console struct {
	ctrl   *controller.Controller
	doc    *ui.Document
	widget *ui.MarkerMap
	health HealthChecker
	logger *zap.Logger

	outMu   sync.Mutex
	out     io.Writer
	prompt  bool
	lastCmd string
	pending sync.WaitGroup
}

// New returns a console over the given session. health may be nil.
func New(ctrl *controller.Controller, doc *ui.Document, widget *ui.MarkerMap, health HealthChecker, out io.Writer, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{ctrl: ctrl, doc: doc, widget: widget, health: health, out: out, logger: logger}
}

// SetPrompt enables the "> " prompt before each line.
func (c *Console) SetPrompt(on bool) { c.prompt = on }

// Interactive reports whether f is a terminal.
func Interactive(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Run executes lines from in until EOF, quit, or ctx is done, then waits for any outstanding
// submission to be rendered.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	defer c.Wait()
	c.printf("Wildfire risk console. Type help for commands.\n")
	for {
		c.showPrompt()
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return nil
			}
			if quit := c.Execute(ctx, line); quit {
				return nil
			}
		}
	}
}

// Wait blocks until every submission started by Execute has been rendered.
func (c *Console) Wait() {
	c.pending.Wait()
}

// Execute runs one command line and reports whether the user asked to quit. Submissions run
// on their own goroutine; use Wait to observe their outcome.
func (c *Console) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		if c.lastCmd == "set" {
			c.lastCmd = ""
			c.submit(ctx)
		}
		return false
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	c.lastCmd = cmd

	switch cmd {
	case "help", "?":
		c.printf("%s\n", helpText)
	case "mode":
		if len(args) != 1 {
			c.printf("usage: mode coords|map\n")
			return false
		}
		m, err := mode.ParseLocationMode(args[0])
		if err != nil {
			c.printf("%v\n", err)
			return false
		}
		c.ctrl.SetLocationMode(m)
		c.printf("location mode: %s\n", m)
	case "data":
		if len(args) != 1 {
			c.printf("usage: data auto|manual\n")
			return false
		}
		m, err := mode.ParseDataMode(args[0])
		if err != nil {
			c.printf("%v\n", err)
			return false
		}
		c.ctrl.SetDataMode(m)
		c.printf("data mode: %s\n", m)
	case "set":
		if len(args) != 2 {
			c.printf("usage: set <field> <value>\n")
			return false
		}
		id, ok := formFields[strings.ToLower(args[0])]
		if !ok {
			c.printf("unknown field %q\n", args[0])
			return false
		}
		c.ctrl.SetField(id, args[1])
	case "click":
		c.click(args)
	case "examples":
		for i, ex := range controller.Examples {
			c.printf("  %d. %-16s %.4f, %.4f\n", i+1, ex.Name, ex.Latitude, ex.Longitude)
		}
	case "example":
		n := 0
		if len(args) == 1 {
			n, _ = strconv.Atoi(args[0])
		}
		ex, err := c.ctrl.UseExample(n)
		if err != nil {
			c.printf("%v\n", err)
			return false
		}
		c.printf("coordinates set to %s\n", ex.Name)
	case "predict", "submit":
		c.submit(ctx)
	case "status":
		c.status()
	case "health":
		c.checkHealth(ctx)
	case "quit", "exit":
		return true
	default:
		c.printf("unknown command %q (type help)\n", cmd)
	}
	return false
}

func (c *Console) click(args []string) {
	if len(args) != 2 {
		c.printf("usage: click <lat> <lon>\n")
		return
	}
	lat, err1 := strconv.ParseFloat(args[0], 64)
	lon, err2 := strconv.ParseFloat(args[1], 64)
	if err1 != nil || err2 != nil {
		c.printf("usage: click <lat> <lon>\n")
		return
	}
	if c.ctrl.Selection().Location != mode.LocationMap {
		c.printf("note: map is hidden in coordinates mode; the click still selects the point\n")
	}
	c.widget.Click(lat, lon)
	c.printf("selected %s, %s\n", c.doc.Value(ui.LatitudeField), c.doc.Value(ui.LongitudeField))
}

func (c *Console) submit(ctx context.Context) {
	if lifecycle.IsShuttingDown() {
		c.printf("shutting down; submission ignored\n")
		return
	}
	if c.ctrl.Busy() {
		c.printf("submission already in progress\n")
		return
	}
	// A submission outlives the input loop's cancellation; shutdown waits for it instead.
	ctx = context.WithoutCancel(ctx)
	c.printf("%s\n", ui.BusyLabel)
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		outcome := c.ctrl.Submit(ctx)
		c.logger.Debug("submission finished", zap.Stringer("outcome", outcome))
		switch outcome {
		case controller.OutcomeSuppressed:
			c.printf("submission already in progress\n")
		default:
			c.printSurface()
		}
	}()
}

// printSurface prints the surface the renderer last brought into view. Nothing is printed
// when no surface was scrolled to since the previous call.
func (c *Console) printSurface() {
	scrolled := c.doc.TakeScrolled()
	if len(scrolled) == 0 {
		return
	}
	switch scrolled[len(scrolled)-1] {
	case ui.ErrorSurface:
		c.printf("Error: %s\n", c.doc.Text(ui.ErrorMessage))
	case ui.ResultsSurface:
		c.printResults()
	}
}

func (c *Console) printResults() {
	var b strings.Builder
	fmt.Fprintf(&b, "Risk level:     %s (%s)\n", c.doc.Text(ui.RiskLevel), c.doc.Element(ui.RiskIndicator).Color)
	fmt.Fprintf(&b, "Probability:    %s\n", c.doc.Text(ui.RiskProbability))
	if !c.doc.Hidden(ui.FirePredicted) {
		fmt.Fprintf(&b, "Fire predicted: %s\n", c.doc.Text(ui.FirePredicted))
	}
	fmt.Fprintf(&b, "Location:       %s\n", c.doc.Text(ui.ResultCoords))
	fmt.Fprintf(&b, "Predicted at:   %s\n", c.doc.Text(ui.PredictionTime))
	fmt.Fprintf(&b, "Temperature:    %s\n", c.doc.Text(ui.DataTemperature))
	fmt.Fprintf(&b, "Humidity:       %s\n", c.doc.Text(ui.DataHumidity))
	fmt.Fprintf(&b, "Wind speed:     %s\n", c.doc.Text(ui.DataWind))
	fmt.Fprintf(&b, "Precipitation:  %s\n", c.doc.Text(ui.DataPrecipitation))
	fmt.Fprintf(&b, "NDVI:           %s\n", c.doc.Text(ui.DataNDVI))
	fmt.Fprintf(&b, "Elevation:      %s\n", c.doc.Text(ui.DataElevation))
	fmt.Fprintf(&b, "Slope:          %s\n", c.doc.Text(ui.DataSlope))
	c.printf("%s", b.String())
}

func (c *Console) status() {
	sel := c.ctrl.Selection()
	c.printf("location mode: %s\ndata mode: %s\n", sel.Location, sel.Data)
	c.printf("latitude: %q longitude: %q\n", c.doc.Value(ui.LatitudeField), c.doc.Value(ui.LongitudeField))
	if sel.SelectedPoint != nil {
		c.printf("selected point: %.6f, %.6f\n", sel.SelectedPoint.Latitude, sel.SelectedPoint.Longitude)
	}
	center, zoom := c.widget.View()
	c.printf("map: centre %.4f, %.4f zoom %d, resized %d times\n", center.Latitude, center.Longitude, zoom, c.widget.Resizes())
	if sel.Data == mode.DataManual {
		for _, id := range []ui.ElementID{ui.TemperatureField, ui.HumidityField, ui.WindSpeedField,
			ui.PrecipitationField, ui.NDVIField, ui.ElevationField, ui.SlopeField} {
			c.printf("  %s: %q\n", id, c.doc.Value(id))
		}
	}
	if c.ctrl.Busy() {
		c.printf("%s\n", ui.BusyLabel)
	}
}

func (c *Console) checkHealth(ctx context.Context) {
	if c.health == nil {
		c.printf("health check unavailable\n")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	hs, err := c.health.CheckHealth(ctx)
	if err != nil {
		c.printf("prediction service unhealthy: %v\n", err)
		return
	}
	c.printf("prediction service: %s (model loaded: %t)\n", hs.Status, hs.ModelLoaded)
}

func (c *Console) showPrompt() {
	if c.prompt {
		c.printf("> ")
	}
}

func (c *Console) printf(format string, args ...interface{}) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
