package http

import "net/http"

// ChatPage serves a single-page web chat. The session id comes from the
// "session" query parameter and defaults to "web".
func (s *Server) ChatPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(chatHTML))
}

const chatHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>Panel</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; }
#log div { margin: .5rem 0; white-space: pre-wrap; }
.opinion { color: #555; border-left: 3px solid #ccc; padding-left: .5rem; }
.failed { color: #a33; }
.answer { border-left: 3px solid #3a6; padding-left: .5rem; }
form { display: flex; gap: .5rem; }
input { flex: 1; padding: .4rem; }
</style>
</head>
<body>
<h1>Panel</h1>
<div id="log"></div>
<form id="ask">
  <input id="q" autocomplete="off" placeholder="Ask the panel..." />
  <button>Ask</button>
</form>
<script>
const params = new URLSearchParams(location.search);
const session = encodeURIComponent(params.get("session") || "web");
const log = document.getElementById("log");

function line(cls, text) {
  const d = document.createElement("div");
  d.className = cls;
  d.textContent = text;
  log.appendChild(d);
}

const events = new EventSource("/sessions/" + session + "/events");
events.addEventListener("opinion", (e) => {
  const ev = JSON.parse(e.data);
  const r = ev.result;
  if (r.error) {
    line("opinion failed", r.expert_id + ": " + r.error.kind + " (" + r.error.message + ")");
  } else {
    line("opinion", r.expert_id + ": " + r.text);
  }
});
events.addEventListener("synthesis", (e) => {
  const ev = JSON.parse(e.data);
  line("opinion", "Synthesizing " + (ev.total - ev.failed) + " of " + ev.total + " opinions...");
});

document.getElementById("ask").addEventListener("submit", async (e) => {
  e.preventDefault();
  const q = document.getElementById("q");
  const question = q.value;
  q.value = "";
  line("", "> " + question);
  const res = await fetch("/sessions/" + session + "/ask", {
    method: "POST",
    headers: { "Content-Type": "application/json" },
    body: JSON.stringify({ question }),
  });
  const body = await res.json();
  if (!res.ok) {
    line("failed", "error: " + body.error);
    return;
  }
  line("answer", body.final_text);
});
</script>
</body>
</html>
`
