/*
Package servicebus provides the process-wide named-channel event bus.
Dispatch is synchronous and in registration order; listener failures are
contained at the bus boundary so one misbehaving module cannot take down
the whole dispatch.
*/
package servicebus
