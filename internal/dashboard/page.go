package dashboard

// pageHTML is the dashboard template. Tables and metrics render server
// side; the embedded JSON feeds the charts and the CSV/SQL exports. Styling
// uses the Nord frost palette.
const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>M365 Cost Management</title>
    <script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.0/dist/chart.umd.min.js"></script>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            font-weight: 300;
            color: #2E3440;
            background: #ECEFF4;
            padding: 2rem;
        }
        .container {
            max-width: 1200px;
            margin: 0 auto;
            background: #fff;
            padding: 3rem;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(46, 52, 64, 0.1);
        }
        h1 { font-weight: 300; font-size: 2.5rem; margin-bottom: 1rem; }
        h3 { font-weight: 400; font-size: 1.2rem; margin: 2rem 0 1rem 0; }
        h4 { font-weight: 400; font-size: 1rem; margin: 1.5rem 0 0.5rem 0; color: #4C566A; }
        p { line-height: 1.6; color: #4C566A; }
        .status-banner {
            padding: 1rem 1.5rem;
            margin-bottom: 2rem;
            border-radius: 4px;
            border-left: 4px solid;
        }
        .status-banner.warning { background: #EBCB8B20; border-color: #EBCB8B; color: #5E4F21; }
        .status-banner.error { background: #BF616A20; border-color: #BF616A; color: #6B1A22; }
        .status-banner.success { background: #A3BE8C20; border-color: #A3BE8C; color: #2F4F21; }
        .status-banner h3 { margin: 0 0 0.5rem 0; font-size: 1rem; font-weight: 600; }
        .status-banner p { margin: 0; font-size: 0.9rem; }
        .tabs { display: flex; border-bottom: 1px solid #D8DEE9; margin-bottom: 2rem; }
        .tab {
            padding: 0.75rem 1.5rem;
            background: none;
            border: none;
            border-bottom: 2px solid transparent;
            font-size: 0.95rem;
            color: #4C566A;
            cursor: pointer;
        }
        .tab:hover { color: #2E3440; }
        .tab.active { color: #5E81AC; border-bottom-color: #5E81AC; font-weight: 500; }
        .page { display: none; }
        .page.active { display: block; }
        .hero-metric { text-align: center; padding: 3rem 0; }
        .hero-value { font-size: 4rem; font-weight: 200; color: #5E81AC; }
        .hero-label { font-size: 1.2rem; color: #4C566A; margin-top: 0.5rem; }
        .hero-sublabel { font-size: 0.95rem; color: #4C566A; margin-top: 0.25rem; }
        .chart-container { position: relative; height: 360px; margin: 1.5rem 0; }
        .caption { text-align: center; font-size: 0.9rem; color: #4C566A; margin-bottom: 2rem; }
        table { width: 100%; border-collapse: collapse; margin: 1rem 0 2rem 0; }
        th {
            text-align: left;
            padding: 0.75rem 1rem;
            font-weight: 500;
            font-size: 0.85rem;
            color: #4C566A;
            border-bottom: 2px solid #D8DEE9;
        }
        td { padding: 0.75rem 1rem; border-bottom: 1px solid #ECEFF4; font-size: 0.9rem; }
        .num { text-align: right; }
        .mono { font-family: 'Monaco', 'Courier New', monospace; font-size: 0.85em; color: #4C566A; }
        .download-btn {
            display: inline-block;
            padding: 0.6rem 1.2rem;
            background: #5E81AC;
            color: #fff;
            border: none;
            border-radius: 4px;
            font-size: 0.9rem;
            text-decoration: none;
            cursor: pointer;
        }
        .actions-list { list-style: none; }
        .actions-list li {
            padding: 1.5rem;
            margin-bottom: 1rem;
            background: #ECEFF4;
            border-radius: 4px;
            border-left: 3px solid #5E81AC;
        }
        .action-title { font-weight: 500; margin-bottom: 0.25rem; }
        .action-impact { color: #A3BE8C; font-weight: 600; margin-bottom: 0.5rem; }
        .action-desc { color: #4C566A; font-size: 0.9rem; line-height: 1.5; }
        .meta-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(180px, 1fr));
            gap: 1rem;
            margin: 1rem 0 2rem 0;
        }
        .meta-card { padding: 1.25rem; background: #ECEFF4; border-radius: 4px; }
        .meta-label { font-size: 0.8rem; color: #4C566A; margin-bottom: 0.35rem; }
        .meta-value { font-size: 1.5rem; font-weight: 300; }
        .checkpoint-list, .retry-list { list-style: none; }
        .checkpoint-list li, .retry-list li {
            padding: 0.75rem 1rem;
            background: #EBCB8B20;
            margin-bottom: 0.5rem;
            border-radius: 4px;
            border-left: 3px solid #EBCB8B;
            font-size: 0.85rem;
            color: #4C566A;
        }
        .checkpoint-phase, .retry-endpoint { color: #5E81AC; font-weight: 600; }
        .price-input {
            display: none;
            width: 100px;
            padding: 0.5rem;
            border: 1px solid #D8DEE9;
            border-radius: 4px;
        }
    </style>
</head>
<body>
    <div class="container">
        <h1>Microsoft 365 Cost Management</h1>

        {{if .IsComplete}}
        <div class="status-banner success">
            <h3>Complete Data</h3>
            <p>Dashboard shows data from completed collection run #{{.Metadata.RunID}} on {{.Metadata.Timestamp}}.</p>
        </div>
        {{else if eq .Metadata.Status "running"}}
        <div class="status-banner warning">
            <h3>Collection In Progress</h3>
            <p>Data collection is currently running. Dashboard shows partial data. Refresh after collection completes.</p>
        </div>
        {{else}}
        <div class="status-banner error">
            <h3>Collection Failed</h3>
            <p>The last data collection failed. Dashboard shows partial data from the incomplete run. Check Collection Info tab for details.</p>
        </div>
        {{end}}

        <div class="tabs">
            <button class="tab active" onclick="showPage(event, 'overview')">Overview</button>
            <button class="tab" onclick="showPage(event, 'inactive')">Inactive Users</button>
            <button class="tab" onclick="showPage(event, 'utilization')">License Utilization</button>
            <button class="tab" onclick="showPage(event, 'actions')">Actions</button>
            <button class="tab" onclick="showPage(event, 'pricing')">Pricing</button>
            <button class="tab" onclick="showPage(event, 'collection')">Collection Info</button>
        </div>

        <div id="overview" class="page active">
            <div class="hero-metric">
                <div class="hero-value">{{pct .SavingsPct}}%</div>
                <div class="hero-label">potential cost reduction</div>
                <div class="hero-sublabel">{{usd .TotalSavings}}/month &middot; {{usd (.AnnualSavings)}}/year</div>
            </div>

            <h3>Current Spending</h3>
            <div class="chart-container">
                <canvas id="overviewChart"></canvas>
            </div>
            <div class="caption">Total monthly cost: {{usd .Costs.MonthlySpend}} across {{len .CostsBySKU}} license types</div>
        </div>

        <div id="inactive" class="page">
            <h3>Inactive Users</h3>
            <p style="margin-bottom: 2rem;">{{.InactiveDays}}+ days without sign-in</p>

            <div class="hero-metric">
                <div class="hero-value">{{.TotalInactive}}</div>
                <div class="hero-label">inactive users</div>
                <div class="hero-sublabel">{{usd .InactiveCost}}/month &middot; {{usd .AnnualInactiveCost}}/year</div>
            </div>
            {{if .Activity}}
            <p style="margin-bottom: 2rem;">Of {{.Activity.TotalUsers}} users: {{.Activity.ActiveUsers}} active,
                {{.Activity.InactiveUsers}} inactive, {{.Activity.NeverSignedIn}} never signed in.</p>
            {{end}}

            <h3>By License Type</h3>
            <div class="chart-container">
                <canvas id="inactiveChart"></canvas>
            </div>

            <h3>Details</h3>
            <table>
                <thead>
                    <tr>
                        <th>User</th>
                        <th>License Type</th>
                        <th class="num">Monthly Cost</th>
                        <th>Last Sign-In</th>
                        <th class="num">Days Inactive</th>
                    </tr>
                </thead>
                <tbody>
                    {{range .InactiveUsers}}
                    <tr>
                        <td>{{.UPN}}</td>
                        <td>{{.SKUName}}</td>
                        <td class="num">{{usd .MonthlyCost}}</td>
                        <td>{{orNever .LastSignIn}}</td>
                        <td class="num">{{days .DaysInactive}}</td>
                    </tr>
                    {{end}}
                </tbody>
            </table>

            <a href="#" class="download-btn" onclick="downloadInactiveUsers(); return false;">Download user list</a>
        </div>

        <div id="utilization" class="page">
            <h3>License Utilization</h3>
            <p style="margin-bottom: 2rem;">Unassigned licenses costing money</p>

            <div class="hero-metric">
                <div class="hero-value">{{usd .TotalWaste}}</div>
                <div class="hero-label">monthly waste</div>
                <div class="hero-sublabel">{{usd .AnnualWaste}}/year from unassigned licenses</div>
            </div>

            <h3>Unassigned Licenses by Type</h3>
            <table>
                <thead>
                    <tr>
                        <th>License Type</th>
                        <th class="num">Unassigned</th>
                        <th class="num">Total</th>
                        <th class="num">Utilization</th>
                        <th class="num">Monthly Waste</th>
                    </tr>
                </thead>
                <tbody>
                    {{range .Underutilized}}
                    <tr>
                        <td>{{.SKUName}}</td>
                        <td class="num">{{.Available}}</td>
                        <td class="num">{{.Total}}</td>
                        <td class="num">{{pct .UtilizationPct}}%</td>
                        <td class="num">{{usd .WasteMonthly}}</td>
                    </tr>
                    {{end}}
                </tbody>
            </table>
        </div>

        <div id="actions" class="page">
            <h3>Recommended Actions</h3>
            <p style="margin-bottom: 2rem;">Prioritized by annual savings potential</p>

            <ul class="actions-list">
                {{range .Actions}}
                <li>
                    <div class="action-title">{{.Title}}</div>
                    <div class="action-impact">{{.Impact}}</div>
                    <div class="action-desc">{{.Description}}</div>
                </li>
                {{end}}
            </ul>

            <h3>Before Removing Licenses</h3>
            <ul style="margin: 1rem 0; padding-left: 2rem; color: #4C566A; line-height: 1.8;">
                <li>Cross-reference with HR termination records</li>
                <li>Check for extended leave (medical, parental, sabbatical)</li>
                <li>Exclude service accounts and automation users</li>
                <li>Obtain IT leadership approval</li>
                <li>Document all removals for audit trail</li>
            </ul>

            <h3>Ongoing Process</h3>
            <p style="line-height: 1.8; margin-top: 1rem;">
                Run monthly audits to catch license drift. Set calendar reminders to regenerate this dashboard
                before each billing cycle. Review inactive users quarterly with department managers.
            </p>
        </div>

        <div id="pricing" class="page">
            <h3>License Pricing</h3>
            <p style="margin-bottom: 2rem;">Manage monthly costs for each SKU</p>

            <div style="margin-bottom: 2rem;">
                <button id="editPricingBtn" class="download-btn" onclick="togglePricingEdit()">Edit Prices</button>
                <button id="exportSqlBtn" class="download-btn" onclick="exportPricingSQL()" style="display: none; background: #A3BE8C; margin-left: 1rem;">Export SQL</button>
                <a href="#" class="download-btn" onclick="downloadPricingCSV(); return false;" style="margin-left: 1rem;">Download CSV</a>
            </div>

            <table id="pricingTable">
                <thead>
                    <tr>
                        <th>SKU Name</th>
                        <th>SKU ID</th>
                        <th class="num">Monthly Cost</th>
                    </tr>
                </thead>
                <tbody>
                    {{range .Pricing}}
                    <tr data-sku-id="{{.SKUID}}">
                        <td>{{.SKUName}}</td>
                        <td class="mono">{{.SKUID}}</td>
                        <td class="num">
                            <span class="price-display">{{usd .MonthlyCost}}</span>
                            <input type="number" step="0.01" min="0" class="price-input"
                                value="{{.MonthlyCost}}"
                                data-sku-id="{{.SKUID}}"
                                data-sku-name="{{.SKUName}}"
                                data-original="{{.MonthlyCost}}" />
                        </td>
                    </tr>
                    {{end}}
                </tbody>
            </table>

            <div id="pricingChangeSummary" style="display: none; margin-top: 2rem; padding: 1.5rem; background: #EBCB8B20; border-left: 3px solid #EBCB8B; border-radius: 4px;">
                <h4 style="margin-bottom: 1rem;">Pending Changes</h4>
                <ul id="changesList" style="list-style: none; margin: 0;"></ul>
            </div>
        </div>

        <div id="collection" class="page">
            <h3>Collection Run Information</h3>

            <div class="meta-grid">
                <div class="meta-card">
                    <div class="meta-label">Status</div>
                    <div class="meta-value">{{.Metadata.Status}}</div>
                </div>
                <div class="meta-card">
                    <div class="meta-label">Run ID</div>
                    <div class="meta-value">#{{.Metadata.RunID}}</div>
                </div>
                <div class="meta-card">
                    <div class="meta-label">Timestamp</div>
                    <div class="meta-value" style="font-size: 1.1rem;">{{.Metadata.Timestamp}}</div>
                </div>
                <div class="meta-card">
                    <div class="meta-label">Users Collected</div>
                    <div class="meta-value">{{.Metadata.TotalUsers}}</div>
                </div>
                <div class="meta-card">
                    <div class="meta-label">License Types</div>
                    <div class="meta-value">{{.Metadata.TotalSKUs}}</div>
                </div>
                <div class="meta-card">
                    <div class="meta-label">Dashboard Generated</div>
                    <div class="meta-value" style="font-size: 1.1rem;">{{.GeneratedAt}}</div>
                </div>
            </div>

            {{if .Metadata.LastPhase}}
            <h3>Collection Progress</h3>
            <div class="meta-grid">
                <div class="meta-card">
                    <div class="meta-label">Last Phase</div>
                    <div class="meta-value" style="font-size: 1.1rem;">{{.Metadata.LastPhase}}</div>
                </div>
                <div class="meta-card">
                    <div class="meta-label">Progress</div>
                    <div class="meta-value">{{.Metadata.Progress}} / {{.Metadata.Total}}</div>
                </div>
                <div class="meta-card">
                    <div class="meta-label">Percentage</div>
                    <div class="meta-value">{{pct .Metadata.ProgressPct}}%</div>
                </div>
            </div>
            {{if .Metadata.ProgressMessage}}<p style="margin-top: 1rem;">{{.Metadata.ProgressMessage}}</p>{{end}}
            {{end}}

            {{if .Metadata.ErrorMessage}}
            <h3>Error Details</h3>
            <div class="status-banner error">
                <p>{{.Metadata.ErrorMessage}}</p>
            </div>
            {{end}}

            {{if .Checkpoints}}
            <h3>Recent Checkpoints</h3>
            <p style="margin-bottom: 1rem;">Last 10 checkpoints from collection run</p>
            <ul class="checkpoint-list">
                {{range .Checkpoints}}
                <li>
                    <span class="checkpoint-phase">{{.Phase}}</span>
                    {{.Progress}}/{{.Total}}
                    at {{.Timestamp}}
                </li>
                {{end}}
            </ul>
            {{end}}

            {{if gt .RetryInfo.TotalRetries 0}}
            <h3>Rate Limiting &amp; Retries</h3>
            <div class="meta-grid">
                <div class="meta-card">
                    <div class="meta-label">Total Retries</div>
                    <div class="meta-value">{{.RetryInfo.TotalRetries}}</div>
                </div>
            </div>
            <p style="margin: 1rem 0;">Recent retry attempts (last 10)</p>
            <ul class="retry-list">
                {{range .RetryInfo.RecentRetries}}
                <li>
                    <span class="retry-endpoint">{{.Endpoint}}</span>
                    attempt #{{.Attempt}}, delay {{.Delay}}s
                    at {{.Timestamp}}
                    <br><small>{{.Reason}}</small>
                </li>
                {{end}}
            </ul>
            {{end}}
        </div>
    </div>

    <script>
        var data = {{.JSON}};

        var colors = {
            frost1: '#8FBCBB',
            frost2: '#88C0D0',
            frost3: '#81A1C1',
            frost4: '#5E81AC',
            warning: '#EBCB8B',
            error: '#BF616A',
            success: '#A3BE8C'
        };

        function formatCurrency(value) {
            return new Intl.NumberFormat('en-US', {
                style: 'currency',
                currency: 'USD',
                minimumFractionDigits: 2
            }).format(value);
        }

        function showPage(event, pageId) {
            document.querySelectorAll('.page').forEach(function (page) {
                page.classList.remove('active');
            });
            document.querySelectorAll('.tab').forEach(function (tab) {
                tab.classList.remove('active');
            });
            document.getElementById(pageId).classList.add('active');
            event.target.classList.add('active');
        }

        function horizontalBarChart(canvasId, labels, values, color, tooltip) {
            var ctx = document.getElementById(canvasId).getContext('2d');
            new Chart(ctx, {
                type: 'bar',
                data: {
                    labels: labels,
                    datasets: [{ data: values, backgroundColor: color, borderWidth: 0 }]
                },
                options: {
                    indexAxis: 'y',
                    responsive: true,
                    maintainAspectRatio: false,
                    plugins: {
                        legend: { display: false },
                        tooltip: { callbacks: { label: tooltip } }
                    },
                    scales: {
                        x: { display: false, grid: { display: false } },
                        y: { grid: { display: false }, ticks: { font: { size: 12 } } }
                    }
                }
            });
        }

        var top8 = data.costs_by_sku ? data.costs_by_sku.slice(0, 8) : [];
        horizontalBarChart('overviewChart',
            top8.map(function (item) { return item.sku_name; }),
            top8.map(function (item) { return item.total_cost; }),
            colors.frost4,
            function (context) { return formatCurrency(context.parsed.x) + '/month'; });

        var inactiveSummary = (data.inactive_summary || []).slice().reverse();
        horizontalBarChart('inactiveChart',
            inactiveSummary.map(function (item) { return item.sku_name; }),
            inactiveSummary.map(function (item) { return item.inactive_count; }),
            colors.frost3,
            function (context) {
                var item = inactiveSummary[context.dataIndex];
                return item.inactive_count + ' users, ' + formatCurrency(item.total_monthly_cost) + '/mo';
            });

        function downloadBlob(content, type, filename) {
            var blob = new Blob([content], { type: type });
            var url = URL.createObjectURL(blob);
            var a = document.createElement('a');
            a.href = url;
            a.download = filename;
            a.click();
            URL.revokeObjectURL(url);
        }

        function downloadInactiveUsers() {
            var rows = [['User Principal Name', 'License Type', 'Monthly Cost', 'Last Sign-In', 'Days Inactive']];
            (data.inactive_users || []).forEach(function (user) {
                rows.push([
                    user.user_principal_name,
                    user.sku_name,
                    user.monthly_cost,
                    user.last_sign_in_date || 'Never',
                    user.days_inactive === 9999 ? 'Never' : user.days_inactive
                ]);
            });
            var csv = rows.map(function (row) { return row.join(','); }).join('\n');
            downloadBlob(csv, 'text/csv', 'inactive_users.csv');
        }

        var pricingEdits = {};
        var isEditingPricing = false;

        function trackPricingChange(event) {
            var input = event.target;
            var skuId = input.dataset.skuId;
            var original = parseFloat(input.dataset.original);
            var updated = parseFloat(input.value);

            if (updated !== original) {
                pricingEdits[skuId] = {
                    sku_id: skuId,
                    sku_name: input.dataset.skuName,
                    monthly_cost: updated,
                    original_cost: original
                };
            } else {
                delete pricingEdits[skuId];
            }
            updateChangeSummary();
        }

        function updateChangeSummary() {
            var summary = document.getElementById('pricingChangeSummary');
            var list = document.getElementById('changesList');
            var changes = Object.values(pricingEdits);

            if (changes.length === 0) {
                summary.style.display = 'none';
                return;
            }
            summary.style.display = 'block';
            list.innerHTML = changes.map(function (change) {
                return '<li style="padding: 0.5rem 0; color: #4C566A;"><strong>' +
                    change.sku_name + '</strong>: ' +
                    formatCurrency(change.original_cost) + ' to ' +
                    formatCurrency(change.monthly_cost) + '</li>';
            }).join('');
        }

        function togglePricingEdit() {
            isEditingPricing = !isEditingPricing;
            var editBtn = document.getElementById('editPricingBtn');
            var exportBtn = document.getElementById('exportSqlBtn');
            var displays = document.querySelectorAll('.price-display');
            var inputs = document.querySelectorAll('.price-input');

            if (isEditingPricing) {
                editBtn.textContent = 'Save Changes';
                editBtn.style.background = '#A3BE8C';
                displays.forEach(function (d) { d.style.display = 'none'; });
                inputs.forEach(function (i) {
                    i.style.display = 'inline-block';
                    i.addEventListener('input', trackPricingChange);
                });
            } else {
                editBtn.textContent = 'Edit Prices';
                editBtn.style.background = '#5E81AC';
                if (Object.keys(pricingEdits).length > 0) {
                    exportBtn.style.display = 'inline-block';
                }
                displays.forEach(function (d) { d.style.display = 'inline'; });
                inputs.forEach(function (i) { i.style.display = 'none'; });
                Object.values(pricingEdits).forEach(function (edit) {
                    var row = document.querySelector('tr[data-sku-id="' + edit.sku_id + '"]');
                    if (row) {
                        var display = row.querySelector('.price-display');
                        display.textContent = formatCurrency(edit.monthly_cost);
                        display.style.color = '#5E81AC';
                        display.style.fontWeight = '600';
                    }
                });
            }
        }

        function exportPricingSQL() {
            var changes = Object.values(pricingEdits);
            if (changes.length === 0) {
                alert('No pricing changes to export.');
                return;
            }
            var sql = '-- Pricing updates generated by M365 Cost Management Dashboard\n';
            sql += '-- Run these statements to update the database\n\n';
            changes.forEach(function (change) {
                sql += '-- Update pricing for ' + change.sku_name + '\n';
                sql += 'UPDATE price_lookup\n';
                sql += 'SET monthly_cost = ' + change.monthly_cost + '\n';
                sql += "WHERE sku_id = '" + change.sku_id + "';\n\n";
            });
            downloadBlob(sql, 'text/plain', 'm365_pricing_updates.sql');
        }

        function downloadPricingCSV() {
            var rows = [['SKU Name', 'SKU ID', 'Monthly Cost']];
            (data.pricing || []).forEach(function (item) {
                var edit = pricingEdits[item.sku_id];
                rows.push([item.sku_name, item.sku_id, edit ? edit.monthly_cost : item.monthly_cost]);
            });
            var csv = rows.map(function (row) { return row.join(','); }).join('\n');
            downloadBlob(csv, 'text/csv', 'm365_pricing.csv');
        }
    </script>
</body>
</html>
`
