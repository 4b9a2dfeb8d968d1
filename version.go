package semlog

// Version is the interpreter release, overridable at link time.
var Version = "0.3.0"
