// Package logging defines the Logger contract shared by every dbmcp component
// and a zap-backed implementation.
//
// Components accept a Logger through their options and default to Nop. The
// production logger writes JSON to stderr so that the stdio transport keeps
// stdout for protocol frames.
package logging
