// Package portal drives the public consultation portals of the federal
// regional courts. Two portal families are supported: the JSF/Seam pje
// portals, navigated through a live browser session with AJAX partial
// posts, and the server-rendered eproc portals. Each tribunal and degree
// of jurisdiction is described by a plain Config record; adapters share
// the navigation flow and differ only through their records.
package portal
