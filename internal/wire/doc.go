// Package wire defines the shapes that cross the bridge boundary.
//
// An inbound request is an Envelope ({action, args}). Every outcome,
// success or failure, leaves as a Response ({ok, message, data?}).
// Failures are classified by Kind so the receiver can pick an HTTP
// status and callers can branch on the cause without parsing messages.
//
// Update values inside args are dynamically typed (text, number, bool,
// null). Value is the sealed representation used for them; numbers keep
// their JSON literal so integral and fractional input stay distinguishable.
package wire
