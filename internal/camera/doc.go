// Package camera finds a QR-capable capture device and streams decoded text from it.
//
// Probe enumerates video4linux devices through udev and checks that the
// process may open them; anything short of a usable device yields
// Unavailable so the console falls back to the manual roster. Session owns a
// device exclusively (flock) for the life of one decoder stream and releases
// it on every exit path. Monitor listens for udev hotplug events so a camera
// plugged in mid-meeting is picked up without a restart.
package camera
