// Package passes holds the built-in passes and their provider.
//
//   - weaver:access_widener runs before the marker and turns private and
//     protected members of configured units public.
//   - weaver:interface_injector runs after the marker and adds configured
//     interfaces.
//   - weaver:method_tracer runs after the injector and inserts a
//     trace.enter instruction at the head of every method body.
package passes
