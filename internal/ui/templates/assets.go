package templates

const styles = `
body{font-family:"Noto Sans KR",system-ui,sans-serif;margin:0;background:#f5f6f8;color:#1f2933}
header{padding:1.5rem 2rem;background:#1e3a5f;color:#fff}
header h1{margin:0;font-size:1.6rem}
.subtitle{margin:.25rem 0 0;opacity:.8}
main{display:grid;gap:1rem;padding:1rem 2rem;grid-template-columns:repeat(auto-fit,minmax(420px,1fr))}
.card{background:#fff;border-radius:8px;padding:1rem 1.25rem;box-shadow:0 1px 3px rgba(0,0,0,.08)}
.metrics{display:flex;gap:1rem}
.metric{flex:1;background:#f0f4f8;border-radius:6px;padding:.75rem}
.metric-label{display:block;font-size:.8rem;color:#52606d}
.modern-table{width:100%;border-collapse:collapse;font-size:.9rem}
.modern-table th,.modern-table td{padding:.35rem .5rem;border-bottom:1px solid #e4e7eb;text-align:left}
.filters{display:flex;flex-wrap:wrap;gap:.75rem}
.filters select{min-width:10rem;min-height:6rem}
.badge{background:#1e3a5f;color:#fff;border-radius:10px;padding:0 .5rem;font-size:.8rem}
.warning{color:#b44d12}.success{color:#1f7a4d}.info,.muted{color:#52606d}
`

const chartsJS = `
window.charts = {};
window.filterQuery = function(rep, client, group, product, month) {
  const q = new URLSearchParams();
  [["rep", rep], ["client", client], ["group", group], ["product", product], ["month", month]]
    .forEach(([k, vs]) => (vs || []).forEach(v => q.append(k, v)));
  return q.toString();
};
window.fillOptions = function(el, values) {
  if (!values) return;
  const chosen = new Set(Array.from(el.selectedOptions).map(o => o.value));
  el.replaceChildren(...values.map(v => new Option(v, v, false, chosen.has(v))));
};
window.fillPeriods = function(el, unit, options) {
  const values = (unit === "quarter" ? options.quarters : options.months) || [];
  const current = el.value;
  el.replaceChildren(...values.map(v => new Option(v, v, false, v === current)));
};
function draw(id, config) {
  const canvas = document.getElementById(id);
  if (!canvas || !window.Chart) return;
  if (window.charts[id]) window.charts[id].destroy();
  window.charts[id] = new Chart(canvas, config);
}
window.renderMonthly = function(data) {
  if (!data || !data.length) return;
  draw("monthly-chart", {type: "line", data: {labels: data.map(d => d.month),
    datasets: [{label: "총매출", data: data.map(d => d.revenue)}]}});
};
window.renderBands = function(b) {
  if (!b || !b.clients) return;
  draw("bands-chart", {type: "bar", data: {labels: b.clients.map(c => c.label),
    datasets: [{label: b.title + " 거래처 수", data: b.clients.map(c => c.count)}]}});
};
window.renderTrend = function(t) {
  if (!t || !t.series) return;
  draw("trend-chart", {type: "line", data: {labels: t.months,
    datasets: t.series.map(s => ({label: s.name, data: t.months.map(m => {
      const p = s.points.find(p => p.month === m); return p ? p.revenue : 0; })}))}});
};
`
