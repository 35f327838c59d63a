// Package netconn is the transport-agnostic connection core of holonet.
//
// A transport (an IPC channel, a socket, a relay) is implemented as a Worker.
// The Worker never talks to the caller directly: it is driven by exactly one
// owner and reports everything it produces through the Handler it was built
// with.
//
// # Capabilities
//
// Worker has three hooks, Receive, Tick and Destroy. Embed BaseWorker to get
// no-op defaults and override only what the transport needs.
//
// WorkerFactory builds a Worker bound to a Handler. The indirection lets the
// owner choose where the Worker is created: the Thread relay builds it on the
// goroutine that will drive it, which matters for transports whose resources
// must not migrate between threads.
//
// Connection is the caller-facing Send surface shared by both relays.
//
// # Relays
//
// Relay drives its Worker inline. Send returns after Receive has run on the
// caller's goroutine and Tick is called explicitly by the owner.
//
// Thread owns one goroutine locked to a dedicated OS thread. Outbound
// messages cross an unbounded FIFO queue and the loop polls the Worker with
// an adaptive sleep: 100µs while busy, doubling while idle up to 10ms.
//
// # Usage Example
//
//	handler := func(msg protocol.Message, err error) error {
//	    if err != nil {
//	        log.Printf("delivery failed: %v", err)
//	        return nil
//	    }
//	    fmt.Println("got", msg)
//	    return nil
//	}
//
//	conn, err := netconn.NewThread(handler, relay.NewLoopbackFactory(), nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Destroy()
//
//	_ = conn.Send(protocol.Text("ping"))
//
// # Failures inside the poll loop
//
// A Receive, Tick or Destroy error raised on the Thread's goroutine does not
// stop the loop. It is wrapped in ErrDelivery and handed to the Handler as an
// error event, then polling continues. Only Destroy or a failed construction
// end the goroutine. A Worker that panics ends it abnormally and Destroy
// reports ErrJoin.
//
// # Tick cost
//
// The Thread calls Tick on every iteration, including right after delivering
// a queued message. Workers document for themselves whether Tick is cheap
// when there is nothing to do; all Workers in this module make it a
// non-blocking check.
package netconn
