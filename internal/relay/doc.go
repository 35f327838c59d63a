// Package relay provides holonet transports as netconn Workers.
//
// Transports are split in two layers. Connection, Listener and Sender
// describe a byte stream and how it is obtained; MemoryListener/MemorySender,
// WebSocketListener/WebSocketSender and AzureSender implement them.
// StreamWorker turns any Connection into a netconn.Worker by framing
// protocol messages onto the stream, and DialFactory / AcceptFactory open
// that Connection inside WorkerFactory.New so it is created on the
// goroutine that will drive it.
//
// Loopback and Bridge are Workers with no I/O at all, used to compose
// relays in-process.
//
// # Usage Example
//
//	listener := relay.NewMemoryListener()
//	defer listener.Close()
//	sender := relay.NewMemorySender(listener)
//
//	conn, err := netconn.NewThread(handler, &relay.DialFactory{Sender: sender}, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Destroy()
//
//	_ = conn.Send(protocol.Text("hello"))
package relay
