/*
Copyright (c) 2025 The shopvac Authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

// Package schedule interprets PodCleaner cron expressions and turns them
// into reconcile triggers.
//
// NextFire is the pure core: given a parsed schedule, the current time and
// the last time the schedule fired, it returns when the next pass is due.
// If one or more fire times were missed (for example while the controller
// was down) the pass is due immediately, once; missed intervals never pile
// up into a backlog.
//
// Scheduler keeps one immutable Entry per PodCleaner and arms a timer for
// each. When a timer elapses the scheduler emits a GenericEvent for the
// object on its Events channel, which the controller consumes through a
// channel source. Fires are hints: the reconciler checks Entry.Due before
// running a pass and calls Fired afterwards to install the successor entry.
// A slot that came due while the pass was running makes the successor due
// at once, so that fire is deferred rather than dropped.
package schedule
