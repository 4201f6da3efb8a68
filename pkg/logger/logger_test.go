package logger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithWriter(&buf, "json"), ShouldBeNil)
		ctx := context.Background()

		Convey("When a named logger writes a record", func() {
			Named("engine").With(String("strategy", "aggregatedPaints")).Info(ctx, "batch processed",
				Int("entries", 3),
				Bool("dirty", true),
				Error(errors.New("boom")),
			)

			Convey("Then fields, group and source are present", func() {
				var rec map[string]any
				So(jsoniter.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "batch processed")
				group, ok := rec["engine"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(group["entries"], ShouldEqual, 3.0)
				So(group["dirty"], ShouldEqual, true)
				So(group["source"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level is raised to warn", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Info(ctx, "dropped")
			Get().Warn(ctx, "kept")

			Convey("Then only warn records are written", func() {
				So(strings.Contains(buf.String(), "dropped"), ShouldBeFalse)
				So(strings.Contains(buf.String(), "kept"), ShouldBeTrue)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level names", t, func() {
		So(SetLevelString("DEBUG"), ShouldBeNil)
		So(SetLevelString(" warning "), ShouldBeNil)
		So(SetLevelString(""), ShouldBeNil)
		So(SetLevelString("verbose"), ShouldNotBeNil)
	})
}

func TestInitWithWriterErrors(t *testing.T) {
	Convey("Given invalid sinks", t, func() {
		So(InitWithWriter(nil, "text"), ShouldNotBeNil)
		So(InitWithWriter(&bytes.Buffer{}, "xml"), ShouldNotBeNil)
		So(Init(), ShouldBeNil)
	})
}
