// Package runtime runs provisioned capabilities as bounded subprocesses.
//
// Every execution is bounded three ways:
//
//   - wall clock: the requested timeout, clamped to the profile's maximum;
//     on expiry the whole process group is killed
//   - output: stdout and stderr each keep at most the profile's byte budget,
//     the remainder is drained and discarded
//   - error text: failure messages are clipped to a fixed number of characters
//
// Arguments are split into an argument vector with go-shellwords without
// invoking a shell. Unquoted pipes, redirections and command separators are
// rejected, and variables are not expanded.
//
// # Profiles
//
// A [Profile] names a budget. [ProfileCompact] suits chat front ends that
// show output inline; [ProfileFull] suits interactive terminals.
//
//	exe := runtime.New(runtime.Config{Profile: runtime.ProfileCompact})
//	res := exe.Execute(ctx, resolved, "-c 2 example.com", 30*time.Second)
//	fmt.Println(res.Display())
//
// Execution failures are reported in the returned [Result], never as errors.
package runtime
