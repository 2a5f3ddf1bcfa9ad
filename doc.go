// Package flowz is a flow-based programming (FBP) runtime core.
//
// # Overview
//
// A flowz network is a static graph of black-box components connected by
// bounded point-to-point connections that carry ordered information packets.
// Components run as cooperative tasks: each one executes until it attempts a
// blocking port operation (a send on a full connection, a receive on an empty
// one), at which point it suspends and another component makes progress.
//
// The package separates graph construction from execution:
//
//  1. Build phase: describe components, connections and initial packets with
//     a Graph. The graph is validated and frozen before anything runs.
//  2. Run phase: an Executor drives every component to termination, providing
//     backpressure, end-of-stream propagation and deadlock detection.
//
// # Packets, brackets and channels
//
// Packets are immutable. A data packet carries an opaque payload; a control
// packet carries one of the bracket kinds (KindOpen, KindClose, KindMapOpen,
// KindMapClose, KindSwitch). Matched OPEN/CLOSE pairs delimit substreams,
// MAP_OPEN/MAP_CLOSE delimit map streams partitioned into namespaces by
// SWITCH packets.
//
// Every control packet is tagged with a channel name. A component subscribes
// to exactly one channel (DefaultChannel unless configured): control packets
// on its channel update its bracket state and are delivered; control packets
// on a foreign channel are transparently forwarded downstream on the paired
// output port. This lets several mutually exclusive bracket overlays coexist
// on one data stream.
//
// # Basic usage
//
//	g := flowz.NewGraph("pipeline")
//	src := g.MustAdd("SRC", &LineReader{})
//	rpt := g.MustAdd("RPT_1", &Repeat{})
//	sink := g.MustAdd("LOG_1", &ConsoleWriter{}, flowz.WithKeepalive())
//
//	g.Connect(src.Output("OUT"), rpt.Input("IN"))
//	g.Connect(rpt.Output("OUT"), sink.Input("IN"))
//	g.SetInitialPacket(src.Input("PATH"), "/var/log/system.log")
//
//	exec, err := flowz.New(g)
//	if err != nil {
//		// handle construction error
//	}
//	err = exec.Execute(context.Background())
//
// Execute returns nil once every component has terminated and closed
// cleanly, the first component error (or Close error) otherwise, and an
// error matching ErrDeadlock if the network can no longer make progress.
package flowz
