package stealth

import (
	"context"
	_ "embed"
	"fmt"
	"math/rand"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

//go:embed evasions.js
var evasionsScript string

// Persona defines the browser characteristics to emulate. One Persona is
// generated per browser lifetime so every page presents the same fingerprint.
type Persona struct {
	UserAgent           string   `json:"userAgent"`
	Platform            string   `json:"platform"`
	Vendor              string   `json:"vendor"`
	Languages           []string `json:"languages"`
	Timezone            string   `json:"timezone"`
	Locale              string   `json:"locale"`
	Width               int64    `json:"width"`
	Height              int64    `json:"height"`
	HardwareConcurrency int      `json:"hardwareConcurrency"`
	DeviceMemory        int      `json:"deviceMemory"`
}

var (
	chromeVersions = []string{"128.0.0.0", "129.0.0.0", "130.0.0.0", "131.0.0.0", "132.0.0.0"}
	macVersions    = []string{"10_15_7", "13_6_7", "14_5"}
	screens        = [][2]int64{{1440, 900}, {1512, 982}, {1536, 864}, {1680, 1050}, {1920, 1080}}
	cpuCounts      = []int{8, 10, 12}
	memorySizes    = []int{8, 16}
)

// NewPersona draws a macOS Chrome fingerprint pinned to a mainland China locale.
func NewPersona(rng *rand.Rand) Persona {
	screen := screens[rng.Intn(len(screens))]
	return Persona{
		UserAgent: fmt.Sprintf(
			"Mozilla/5.0 (Macintosh; Intel Mac OS X %s) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%s Safari/537.36",
			macVersions[rng.Intn(len(macVersions))],
			chromeVersions[rng.Intn(len(chromeVersions))],
		),
		Platform:            "MacIntel",
		Vendor:              "Google Inc.",
		Languages:           []string{"zh-CN", "zh", "en"},
		Timezone:            "Asia/Shanghai",
		Locale:              "zh-CN",
		Width:               screen[0],
		Height:              screen[1],
		HardwareConcurrency: cpuCounts[rng.Intn(len(cpuCounts))],
		DeviceMemory:        memorySizes[rng.Intn(len(memorySizes))],
	}
}

// AcceptLanguage renders Languages as an Accept-Language header value with
// descending q-weights.
func (p Persona) AcceptLanguage() string {
	if len(p.Languages) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(p.Languages[0])
	for i := 1; i < len(p.Languages); i++ {
		q := 1.0 - float64(i)*0.1
		if q < 0.7 {
			q = 0.7
		}
		fmt.Fprintf(&b, ",%s;q=%.1f", p.Languages[i], q)
	}
	return b.String()
}

// Script returns the evasion script with the persona bound into it.
func (p Persona) Script() (string, error) {
	personaJSON, err := jsoniter.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("stealth: failed to marshal persona: %w", err)
	}
	return fmt.Sprintf("const NOTECRAWL_PERSONA = %s;\n%s", personaJSON, evasionsScript), nil
}

// Apply constructs the CDP actions that make a fresh tab look like a user
// operated browser. It must run before the first navigation.
func Apply(p Persona, logger *zap.Logger) chromedp.Tasks {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := logger.Named("stealth")
	return chromedp.Tasks{
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": p.AcceptLanguage()}),
		emulation.SetUserAgentOverride(p.UserAgent).
			WithPlatform(p.Platform).
			WithAcceptLanguage(p.AcceptLanguage()),
		emulation.SetDeviceMetricsOverride(p.Width, p.Height, 1.0, false),
		emulation.SetTimezoneOverride(p.Timezone),
		emulation.SetLocaleOverride().WithLocale(p.Locale),
		// AddScriptToEvaluateOnNewDocument returns an identifier as well as an
		// error, so it needs an ActionFunc wrapper.
		chromedp.ActionFunc(func(ctx context.Context) error {
			script, err := p.Script()
			if err != nil {
				return err
			}
			if _, err := page.AddScriptToEvaluateOnNewDocument(script).Do(ctx); err != nil {
				l.Error("Failed to register evasion script.", zap.Error(err))
				return fmt.Errorf("stealth: failed to add script on new document: %w", err)
			}
			return nil
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			l.Debug("Stealth persona applied.", zap.String("platform", p.Platform), zap.Int64("width", p.Width))
			return nil
		}),
	}
}
