// Package netwatch reports network-layer availability to the link manager.
//
// A Watcher polls a Probe on a fixed interval and turns the results into
// edge-triggered OnNetworkConnected / OnNetworkConnectionLost calls. The
// first successful check always reports "connected"; repeated successes or
// failures report nothing.
//
// Probes:
//   - InterfaceProbe: any up, non-loopback interface with an address
//   - DialProbe: the broker accepts a TCP connection
//   - AlwaysUp: assume the network is present (containers, tests)
package netwatch
