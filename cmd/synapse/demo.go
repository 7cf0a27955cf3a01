package main

// demoGraph runs when no graph file is given: Start feeds two numbers into an
// Add node and returns the sum.
const demoGraph = `{
  "version": "2.3.0",
  "project_name": "Demo",
  "project_category": "Examples",
  "project_description": "Adds two numbers and returns the sum.",
  "nodes": [
    {
      "id": "start-1",
      "type": "Start Node",
      "name": "Start",
      "properties": {
        "Additional Outputs": ["A", "B"],
        "A": 2,
        "B": 3
      }
    },
    {
      "id": "add-1",
      "type": "Add",
      "name": "Add"
    },
    {
      "id": "return-1",
      "type": "Return Node",
      "name": "Return",
      "properties": {
        "Additional Inputs": ["Sum"]
      }
    }
  ],
  "wires": [
    {"from_node": "start-1", "from_port": "Flow", "to_node": "add-1", "to_port": "Flow"},
    {"from_node": "start-1", "from_port": "A", "to_node": "add-1", "to_port": "A"},
    {"from_node": "start-1", "from_port": "B", "to_node": "add-1", "to_port": "B"},
    {"from_node": "add-1", "from_port": "Flow", "to_node": "return-1", "to_port": "Flow"},
    {"from_node": "add-1", "from_port": "Result", "to_node": "return-1", "to_port": "Sum"}
  ]
}`
