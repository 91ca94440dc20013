// Package tor routes webcrawler traffic through the Tor network.
//
// It can start an embedded Tor daemon with tornago or use an external Tor
// SOCKS5 proxy, verifies the proxy with a SOCKS5 handshake before a run, and
// validates v3 onion host names of targets.
package tor
