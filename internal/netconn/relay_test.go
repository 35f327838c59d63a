package netconn

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/JamaalDavis/holochain-rust/internal/logging"
	"github.com/JamaalDavis/holochain-rust/internal/protocol"
)

func TestRelay_Defaults(t *testing.T) {
	factory := WorkerFactoryFunc(func(Handler) (Worker, error) {
		return BaseWorker{}, nil
	})
	con, err := NewRelay(func(protocol.Message, error) error { return nil }, factory, nil)
	if err != nil {
		t.Fatalf("NewRelay failed: %v", err)
	}

	if err := con.Send(protocol.Text("test")); err != nil {
		t.Errorf("Send failed: %v", err)
	}
	active, err := con.Tick()
	if err != nil {
		t.Errorf("Tick failed: %v", err)
	}
	if active {
		t.Error("Expected default Tick to report no activity")
	}
	if err := con.Destroy(); err != nil {
		t.Errorf("Destroy failed: %v", err)
	}
	if con.ID() == "" {
		t.Error("Expected relay to have an ID")
	}
}

func TestRelay_SendIsSynchronous(t *testing.T) {
	var received int
	factory := WorkerFactoryFunc(func(h Handler) (Worker, error) {
		return &countingWorker{count: &received}, nil
	})
	con, err := NewRelay(func(protocol.Message, error) error { return nil }, factory, nil)
	if err != nil {
		t.Fatalf("NewRelay failed: %v", err)
	}
	defer con.Destroy()

	for i := 1; i <= 3; i++ {
		if err := con.Send(protocol.Text("x")); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if received != i {
			t.Errorf("Expected Receive to have run %d times when Send returned, got: %d", i, received)
		}
	}
}

type countingWorker struct {
	BaseWorker
	count *int
}

func (w *countingWorker) Receive(protocol.Message) error {
	*w.count++
	return nil
}

func TestRelay_InvokesHandlerInOrder(t *testing.T) {
	c := newCollector()
	con, err := NewRelay(c.handle, echoFactory(), nil)
	if err != nil {
		t.Fatalf("NewRelay failed: %v", err)
	}
	defer con.Destroy()

	for i := 0; i < 50; i++ {
		if err := con.Send(protocol.Text(fmt.Sprint(i))); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}
	for i := 0; i < 50; i++ {
		select {
		case m := <-c.msgs:
			if m.String() != fmt.Sprint(i) {
				t.Errorf("Expected %d, got: %s", i, m.String())
			}
		default:
			t.Fatalf("Expected message %d to already be delivered", i)
		}
	}
}

func TestRelay_Tick(t *testing.T) {
	c := newCollector()
	factory := WorkerFactoryFunc(func(h Handler) (Worker, error) {
		return &tickWorker{echoWorker{handler: h}}, nil
	})
	con, err := NewRelay(c.handle, factory, nil)
	if err != nil {
		t.Fatalf("NewRelay failed: %v", err)
	}
	defer con.Destroy()

	active, err := con.Tick()
	if err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if !active {
		t.Error("Expected Tick to report activity")
	}
	if m := <-c.msgs; m.String() != "tick" {
		t.Errorf("Expected tick, got: %s", m.String())
	}
}

func TestRelay_ConstructionFailure(t *testing.T) {
	var calls atomic.Int32
	con, err := NewRelay(func(protocol.Message, error) error { return nil }, failingFactory(&calls), nil)
	if err == nil {
		t.Fatal("Expected construction to fail")
	}
	if con != nil {
		t.Error("Expected no relay on failure")
	}
	if !errors.Is(err, ErrConstruction) {
		t.Errorf("Expected ErrConstruction, got: %v", err)
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("Expected cause to be preserved, got: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected factory to be called once, got: %d", calls.Load())
	}
}

func TestRelay_InvalidConstruction(t *testing.T) {
	ok := func(protocol.Message, error) error { return nil }
	tests := []struct {
		name    string
		handler Handler
		factory WorkerFactory
	}{
		{"nil handler", nil, echoFactory()},
		{"nil factory", ok, nil},
		{"nil worker", ok, WorkerFactoryFunc(func(Handler) (Worker, error) { return nil, nil })},
		{"panicking factory", ok, WorkerFactoryFunc(func(Handler) (Worker, error) { panic("no transport") })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRelay(tt.handler, tt.factory, nil)
			if !errors.Is(err, ErrConstruction) {
				t.Errorf("Expected ErrConstruction, got: %v", err)
			}
		})
	}
}

func TestRelay_ReceiveFailurePropagates(t *testing.T) {
	handler := func(protocol.Message, error) error { return errBoom }
	con, err := NewRelay(handler, echoFactory(), nil)
	if err != nil {
		t.Fatalf("NewRelay failed: %v", err)
	}
	defer con.Destroy()

	err = con.Send(protocol.Text("x"))
	if !errors.Is(err, ErrDelivery) {
		t.Errorf("Expected ErrDelivery, got: %v", err)
	}
	if !errors.Is(err, errBoom) {
		t.Errorf("Expected cause to be preserved, got: %v", err)
	}
}

func TestRelay_DestroyIsTerminal(t *testing.T) {
	var alive atomic.Bool
	alive.Store(true)
	factory := WorkerFactoryFunc(func(h Handler) (Worker, error) {
		return &aliveWorker{echoWorker: echoWorker{handler: h}, alive: &alive}, nil
	})
	con, err := NewRelay(func(protocol.Message, error) error { return nil }, factory, nil)
	if err != nil {
		t.Fatalf("NewRelay failed: %v", err)
	}

	if err := con.Destroy(); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if alive.Load() {
		t.Error("Expected worker Destroy hook to have run")
	}
	if err := con.Send(protocol.Text("late")); !errors.Is(err, ErrSend) {
		t.Errorf("Expected ErrSend after Destroy, got: %v", err)
	}
	if _, err := con.Tick(); err == nil {
		t.Error("Expected Tick after Destroy to fail")
	}
	if err := con.Destroy(); err != nil {
		t.Errorf("Expected second Destroy to be a no-op, got: %v", err)
	}
}

type failingDestroyWorker struct{ BaseWorker }

func (failingDestroyWorker) Destroy() error { return errBoom }

func TestRelay_DestroyFailure(t *testing.T) {
	buf := &syncBuffer{}
	factory := WorkerFactoryFunc(func(Handler) (Worker, error) { return failingDestroyWorker{}, nil })
	con, err := NewRelay(func(protocol.Message, error) error { return nil }, factory,
		&Options{Logger: logging.NewWithOutput(logging.DebugLevel, buf)})
	if err != nil {
		t.Fatalf("NewRelay failed: %v", err)
	}

	err = con.Destroy()
	if !errors.Is(err, ErrDelivery) || !errors.Is(err, errBoom) {
		t.Errorf("Expected wrapped destroy failure, got: %v", err)
	}
	if !strings.Contains(buf.String(), con.ID()) {
		t.Errorf("Expected logs to carry the relay id, got: %s", buf.String())
	}
}
