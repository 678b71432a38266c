package stream_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/okian/squad/internal/adapters/http/stream"
	"github.com/okian/squad/internal/domain/composer"
	"github.com/okian/squad/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func dial(srv *httptest.Server) (*websocket.Conn, error) {
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	return conn, err
}

func TestHub(t *testing.T) {
	Convey("Given a hub behind an HTTP server", t, func() {
		hub := stream.NewHub()
		srv := httptest.NewServer(hub)
		defer srv.Close()
		defer hub.Close()

		conn, err := dial(srv)
		So(err, ShouldBeNil)
		defer conn.Close()
		So(waitFor(func() bool { return hub.Len() == 1 }), ShouldBeTrue)

		Convey("When a finished composition is published", func() {
			report := composer.Report{
				RunID:      "run-1",
				Budget:     100,
				Evaluation: composer.Evaluation{Cost: 40, MeanAbility: 77.5},
			}
			hub.Publish(context.Background(), "req-1", model.StatusDone, report)

			Convey("Then the client receives the event", func() {
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				_, data, err := conn.ReadMessage()
				So(err, ShouldBeNil)

				var ev stream.Event
				So(json.Unmarshal(data, &ev), ShouldBeNil)
				So(ev.ID, ShouldEqual, "req-1")
				So(ev.Status, ShouldEqual, model.StatusDone)
				So(ev.RunID, ShouldEqual, "run-1")
				So(*ev.Cost, ShouldEqual, 40.0)
				So(*ev.MeanAbility, ShouldEqual, 77.5)
				So(*ev.WithinBudget, ShouldBeTrue)
			})
		})

		Convey("When a pending composition is published", func() {
			hub.Publish(context.Background(), "req-2", model.StatusPending, composer.Report{})

			Convey("Then the event carries no result fields", func() {
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				_, data, err := conn.ReadMessage()
				So(err, ShouldBeNil)
				So(string(data), ShouldContainSubstring, `"status":"pending"`)
				So(string(data), ShouldNotContainSubstring, "cost")
			})
		})

		Convey("When the hub is closed", func() {
			hub.Close()

			Convey("Then clients are disconnected", func() {
				So(hub.Len(), ShouldEqual, 0)
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				_, _, err := conn.ReadMessage()
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the client goes away", func() {
			_ = conn.Close()

			Convey("Then it is unregistered", func() {
				So(waitFor(func() bool { return hub.Len() == 0 }), ShouldBeTrue)
			})
		})
	})
}

func TestHubSlowClient(t *testing.T) {
	Convey("Given a hub with a one-message buffer", t, func() {
		hub := stream.NewHub(stream.WithSendBuffer(1))
		srv := httptest.NewServer(hub)
		defer srv.Close()
		defer hub.Close()

		conn, err := dial(srv)
		So(err, ShouldBeNil)
		defer conn.Close()
		So(waitFor(func() bool { return hub.Len() == 1 }), ShouldBeTrue)

		Convey("When events are published faster than they are read", func() {
			for i := 0; i < 10000; i++ {
				hub.Publish(context.Background(), "req", model.StatusRunning, composer.Report{})
			}

			Convey("Then the client is dropped instead of blocking", func() {
				So(waitFor(func() bool { return hub.Len() == 0 }), ShouldBeTrue)
			})
		})
	})
}
