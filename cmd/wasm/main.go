//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"syscall/js"

	"github.com/google/uuid"

	"github.com/lakehopper/mapclient/internal/document"
	"github.com/lakehopper/mapclient/internal/engine"
	"github.com/lakehopper/mapclient/internal/metrics"
	"github.com/lakehopper/mapclient/internal/notify"
	"github.com/lakehopper/mapclient/internal/session"
	"github.com/lakehopper/mapclient/internal/transport"
)

var (
	sess *session.Session
	// funcs keeps host callbacks alive for the lifetime of the page.
	funcs []js.Func
)

// jsHost adapts the page's plannerHost object ({listen, emit}) to
// transport.Host.
type jsHost struct {
	host js.Value
}

func (h jsHost) Listen(event string, fn func(json.RawMessage)) {
	cb := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		payload := "null"
		if len(args) > 0 && !args[0].IsUndefined() {
			payload = js.Global().Get("JSON").Call("stringify", args[0]).String()
		}
		fn(json.RawMessage(payload))
		return nil
	})
	funcs = append(funcs, cb)
	h.host.Call("listen", event, cb)
}

func (h jsHost) Emit(event string, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("host emit failed")
		}
	}()
	h.host.Call("emit", event, js.Global().Get("JSON").Call("parse", string(payload)))
	return nil
}

func main() {
	host := js.Global().Get("plannerHost")
	if host.IsUndefined() || host.IsNull() || host.Get("emit").IsUndefined() {
		showError("Could not connect to the planning backend.")
		select {}
	}

	t := transport.Recorded(transport.NewBridge(jsHost{host: host}), metrics.TransportRecorder{})

	initial := document.SampleCenter
	if loc := js.Global().Get("plannerInitialLocation"); loc.Type() == js.TypeObject {
		initial = document.LatLng{Lat: loc.Get("lat").Float(), Lng: loc.Get("lng").Float()}
	}

	eng := engine.NewEngine()
	notes := notify.NewCenter(notify.DefaultTTL)
	sess = session.New(uuid.New(), t, eng, notes, session.NewControl(initial))

	// Create the client API object
	client := js.Global().Get("Object").New()

	// --- Commands (page → backend) ---
	client.Set("command", js.FuncOf(command))
	client.Set("requestNavGraph", commandFunc(session.TypeVisibilityGraph))
	client.Set("loadWaters", commandFunc(session.TypeLoadWaters))
	client.Set("loadRestrictedAirspace", commandFunc(session.TypeLoadRestrictedAirspace))
	client.Set("calcPath", commandFunc(session.TypeCalcPath))
	client.Set("plan", commandFunc(session.TypePlan))
	client.Set("clearDebug", js.FuncOf(clearDebug))

	// --- Setters ---
	client.Set("setMode", js.FuncOf(setMode))
	client.Set("setMaxDistanceInitially", js.FuncOf(setMaxDistanceInitially))
	client.Set("setMaxDistanceAfterCharge", js.FuncOf(setMaxDistanceAfterCharge))
	client.Set("setStart", js.FuncOf(setStart))
	client.Set("setEnd", js.FuncOf(setEnd))

	// --- Queries (page ← client) ---
	client.Set("render", js.FuncOf(render))
	client.Set("markerIcon", js.FuncOf(markerIcon))
	client.Set("control", js.FuncOf(control))
	client.Set("notifications", js.FuncOf(notifications))
	client.Set("dismissNotification", js.FuncOf(dismissNotification))
	client.Set("onChange", js.FuncOf(onChange))

	js.Global().Set("plannerClient", client)

	if err := sess.Start(context.Background()); err != nil {
		slog.Error("start session", "error", err)
		showError("Could not connect to the planning backend.")
	}

	// Signal that WASM is ready
	js.Global().Set("plannerWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// showError puts a persistent error line at the top of the page.
func showError(msg string) {
	doc := js.Global().Get("document")
	if doc.IsUndefined() {
		return
	}
	span := doc.Call("createElement", "span")
	span.Set("id", "planner-error")
	span.Set("className", "planner-error")
	span.Set("textContent", msg)
	doc.Get("body").Call("prepend", span)
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

// --- Command Handlers ---

func command(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing command name"})
	}
	if err := sess.Command(context.Background(), args[0].String()); err != nil {
		return fail(err)
	}
	return ok()
}

func commandFunc(name string) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) interface{} {
		if err := sess.Command(context.Background(), name); err != nil {
			return fail(err)
		}
		return ok()
	})
}

func clearDebug(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(sess.ClearDebug())
}

// --- Setters ---

func setMode(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing mode"})
	}
	mode, err := session.ParseMode(args[0].String())
	if err != nil {
		return fail(err)
	}
	if err := sess.Control().SetMode(mode); err != nil {
		return fail(err)
	}
	return ok()
}

func setMaxDistanceInitially(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing distance"})
	}
	if err := sess.Control().SetMaxDistanceInitially(args[0].Float()); err != nil {
		return fail(err)
	}
	return ok()
}

func setMaxDistanceAfterCharge(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing distance"})
	}
	if err := sess.Control().SetMaxDistanceAfterCharge(args[0].Float()); err != nil {
		return fail(err)
	}
	return ok()
}

func setStart(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing lat/lng"})
	}
	if err := sess.Control().SetStart(document.LatLng{Lat: args[0].Float(), Lng: args[1].Float()}); err != nil {
		return fail(err)
	}
	return ok()
}

func setEnd(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(map[string]interface{}{"error": "missing lat/lng"})
	}
	if err := sess.Control().SetEnd(document.LatLng{Lat: args[0].Float(), Lng: args[1].Float()}); err != nil {
		return fail(err)
	}
	return ok()
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(sess.Engine().Render())
}

func markerIcon(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.Null()
	}
	icon, found := sess.Engine().MarkerIcon(args[0].String())
	if !found {
		return js.Null()
	}
	data, _ := json.Marshal(icon)
	return js.ValueOf(string(data))
}

func control(this js.Value, args []js.Value) interface{} {
	data, _ := json.Marshal(sess.Control().Snapshot())
	return js.ValueOf(string(data))
}

func notifications(this js.Value, args []js.Value) interface{} {
	data, _ := json.Marshal(sess.Notifications().Active())
	return js.ValueOf(string(data))
}

func dismissNotification(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(false)
	}
	return js.ValueOf(sess.Notifications().Dismiss(args[0].String()))
}

// onChange registers a page callback called with the change sequence after
// every map update, and with the notification JSON after every notification.
func onChange(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return nil
	}
	cb := args[0]
	sess.Engine().OnChange(func(seq uint64) {
		cb.Invoke("layers", js.ValueOf(float64(seq)))
	})
	sess.Notifications().Subscribe(func(n notify.Notification) {
		data, _ := json.Marshal(n)
		cb.Invoke("notification", js.ValueOf(string(data)))
	})
	return nil
}
