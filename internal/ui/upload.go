package ui

// AcceptTypes is the advisory filter of the file picker. Dragging and dropping
// is handled in the page script; the server validates whatever arrives.
const AcceptTypes = "image/png, image/jpeg, image/webp"
